package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"induswealth/internal/core"
	"induswealth/internal/middleware/auth"
	"induswealth/internal/services"
	"induswealth/internal/storage"
)

const testSecret = "test-secret-0123456789"

// fakeStore backs both the API handlers and the auth service in tests.
type fakeStore struct {
	users       map[string]storage.User
	nextUserID  int64
	liabilities map[int64][]core.AggregatedLiability
	custom      map[int64][]core.CustomDebt
	overrides   map[int64]map[string]decimal.Decimal
	items       map[int64][]storage.BankItem
	nextItemID  int64

	spendingCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]storage.User),
		liabilities: make(map[int64][]core.AggregatedLiability),
		custom:      make(map[int64][]core.CustomDebt),
		overrides:   make(map[int64]map[string]decimal.Decimal),
		items:       make(map[int64][]storage.BankItem),
	}
}

func (s *fakeStore) CreateUser(ctx context.Context, email, passwordHash string) (storage.User, error) {
	s.nextUserID++
	u := storage.User{ID: s.nextUserID, Email: email, PasswordHash: passwordHash}
	s.users[email] = u
	return u, nil
}

func (s *fakeStore) FindUserByEmail(ctx context.Context, email string) (storage.User, error) {
	u, ok := s.users[email]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) ListLiabilities(ctx context.Context, userID int64) ([]core.AggregatedLiability, error) {
	return s.liabilities[userID], nil
}

func (s *fakeStore) ListCustomDebts(ctx context.Context, userID int64) ([]core.CustomDebt, error) {
	return s.custom[userID], nil
}

func (s *fakeStore) CreateCustomDebt(ctx context.Context, userID int64, d core.CustomDebt) error {
	s.custom[userID] = append(s.custom[userID], d)
	return nil
}

func (s *fakeStore) UpdateCustomDebt(ctx context.Context, userID int64, d core.CustomDebt) error {
	for i, existing := range s.custom[userID] {
		if existing.ID == d.ID {
			s.custom[userID][i] = d
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *fakeStore) DeleteCustomDebt(ctx context.Context, userID int64, id string) error {
	for i, existing := range s.custom[userID] {
		if existing.ID == id {
			s.custom[userID] = append(s.custom[userID][:i], s.custom[userID][i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *fakeStore) APROverrides(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	return s.overrides[userID], nil
}

func (s *fakeStore) SetAPROverride(ctx context.Context, userID int64, accountID string, apr decimal.Decimal) error {
	if s.overrides[userID] == nil {
		s.overrides[userID] = make(map[string]decimal.Decimal)
	}
	s.overrides[userID][accountID] = apr
	return nil
}

func (s *fakeStore) MonthlySpending(ctx context.Context, userID int64, year, month int) (storage.SpendingSummary, error) {
	s.spendingCalls++
	return storage.SpendingSummary{Year: year, Month: month, ExpenseCents: 12345}, nil
}

func (s *fakeStore) ListBankItems(ctx context.Context, userID int64) ([]storage.BankItem, error) {
	return s.items[userID], nil
}

func (s *fakeStore) CreateBankItem(ctx context.Context, userID int64, accessToken, institution string) (storage.BankItem, error) {
	s.nextItemID++
	item := storage.BankItem{ID: s.nextItemID, UserID: userID, AccessToken: accessToken, Institution: institution, CreatedAt: time.Now()}
	s.items[userID] = append(s.items[userID], item)
	return item, nil
}

type fakePublisher struct {
	published []int64 // item IDs
	err       error
}

func (p *fakePublisher) PublishLiabilitySync(ctx context.Context, userID, itemID int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, itemID)
	return nil
}

type testEnv struct {
	store     *fakeStore
	publisher *fakePublisher
	server    *Server
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	publisher := &fakePublisher{}

	authSvc, err := services.NewAuthService(store, testSecret)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	normalizer, err := services.NewNormalizer(services.DefaultNormalizerConfig())
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	comparator := services.NewStrategyComparator(normalizer, services.NewSimulator())
	insights := services.NewInsightService(nil, nil)

	srv := NewServer(":0", Deps{
		Store:              store,
		Auth:               authSvc,
		AuthMW:             auth.NewMiddleware(testSecret),
		Comparator:         comparator,
		Insights:           insights,
		Publisher:          publisher,
		RateLimitPerMinute: 10000,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	token, err := authSvc.Register(context.Background(), "user@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	return &testEnv{store: store, publisher: publisher, server: srv, token: token}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

// NewServer panics if any two route patterns conflict, so registering the
// full table and touching every route catches a bad pattern immediately.
func TestRouteTableRegisters(t *testing.T) {
	e := newTestEnv(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/readyz"},
		{http.MethodPost, "/api/register"},
		{http.MethodPost, "/api/login"},
		{http.MethodGet, "/api/debts"},
		{http.MethodGet, "/api/debts/payoff"},
		{http.MethodPost, "/api/debts/custom"},
		{http.MethodPut, "/api/debts/custom/some-id"},
		{http.MethodDelete, "/api/debts/custom/some-id"},
		{http.MethodPut, "/api/apr-overrides/some-account"},
		{http.MethodGet, "/api/analytics/spending"},
		{http.MethodGet, "/api/insights/debt"},
		{http.MethodGet, "/api/items"},
		{http.MethodPost, "/api/items"},
		{http.MethodPost, "/api/sync"},
	}
	for _, route := range routes {
		rec := e.request(t, route.method, route.path, nil, false)
		if rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
			t.Errorf("%s %s not routed (status %d)", route.method, route.path, rec.Code)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := e.request(t, http.MethodGet, path, nil, false)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.request(t, http.MethodPost, "/api/register", credentialsRequest{Email: "new@example.com", Password: "hunter2hunter2"}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body)
	}
	var created tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.Token == "" {
		t.Fatalf("register body = %s", rec.Body)
	}

	rec = e.request(t, http.MethodPost, "/api/register", credentialsRequest{Email: "new@example.com", Password: "hunter2hunter2"}, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", rec.Code)
	}

	rec = e.request(t, http.MethodPost, "/api/login", credentialsRequest{Email: "new@example.com", Password: "hunter2hunter2"}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}

	rec = e.request(t, http.MethodPost, "/api/login", credentialsRequest{Email: "new@example.com", Password: "wrongwrongwrong"}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rec.Code)
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/debts"},
		{http.MethodGet, "/api/debts/payoff"},
		{http.MethodPost, "/api/sync"},
		{http.MethodGet, "/api/analytics/spending"},
	} {
		rec := e.request(t, probe.method, probe.path, nil, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", probe.method, probe.path, rec.Code)
		}
	}
}

func TestListDebts(t *testing.T) {
	e := newTestEnv(t)
	userID := e.store.users["user@example.com"].ID

	apr := decimal.NewFromFloat(19.99)
	minPay := decimal.NewFromInt(75)
	e.store.liabilities[userID] = []core.AggregatedLiability{
		{AccountID: "acc-1", Name: "Rewards Card", Balance: decimal.NewFromInt(2500), APR: &apr, MinimumPayment: &minPay, Kind: core.LiabilityCredit},
	}

	rec := e.request(t, http.MethodGet, "/api/debts", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp debtListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DebtCount != 1 || resp.TotalDebt != 2500 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Debts) != 1 || resp.Debts[0].ID != "acc-1" {
		t.Fatalf("debts = %+v", resp.Debts)
	}
}

func TestPayoffComparison(t *testing.T) {
	e := newTestEnv(t)
	userID := e.store.users["user@example.com"].ID

	e.store.custom[userID] = []core.CustomDebt{
		{ID: "c1", Name: "Card", Balance: decimal.NewFromInt(1000), APR: decimal.NewFromInt(18), MinimumPayment: decimal.NewFromInt(50), Type: core.TypeCreditCard},
	}

	rec := e.request(t, http.MethodGet, "/api/debts/payoff?extra_payment=100", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var report services.StrategyComparisonReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.ExtraPayment != 100 || report.DebtCount != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Strategies.Avalanche.MonthsToPayoff > report.Strategies.StatusQuo.MonthsToPayoff {
		t.Fatal("extra payment made things worse")
	}

	rec = e.request(t, http.MethodGet, "/api/debts/payoff?extra_payment=abc", nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid extra status = %d", rec.Code)
	}
	rec = e.request(t, http.MethodGet, "/api/debts/payoff?extra_payment=-5", nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative extra status = %d", rec.Code)
	}
}

func TestCustomDebtCRUD(t *testing.T) {
	e := newTestEnv(t)
	userID := e.store.users["user@example.com"].ID

	rec := e.request(t, http.MethodPost, "/api/debts/custom", customDebtRequest{
		Name:           "Family loan",
		Balance:        decimal.NewFromInt(2000),
		APR:            decimal.NewFromInt(5),
		MinimumPayment: decimal.NewFromInt(100),
		DebtType:       "other",
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created["id"] == "" {
		t.Fatalf("create body = %s", rec.Body)
	}
	if len(e.store.custom[userID]) != 1 {
		t.Fatalf("store custom = %+v", e.store.custom[userID])
	}

	rec = e.request(t, http.MethodPut, "/api/debts/custom/"+created["id"], customDebtRequest{
		Name:           "Family loan",
		Balance:        decimal.NewFromInt(1500),
		APR:            decimal.NewFromInt(5),
		MinimumPayment: decimal.NewFromInt(100),
		DebtType:       "other",
	}, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}
	if !e.store.custom[userID][0].Balance.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("balance = %s after update", e.store.custom[userID][0].Balance)
	}

	rec = e.request(t, http.MethodDelete, "/api/debts/custom/"+created["id"], nil, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = e.request(t, http.MethodDelete, "/api/debts/custom/"+created["id"], nil, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestCreateCustomDebtValidation(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name string
		req  customDebtRequest
	}{
		{"empty name", customDebtRequest{Balance: decimal.NewFromInt(100), APR: decimal.NewFromInt(5)}},
		{"negative balance", customDebtRequest{Name: "X", Balance: decimal.NewFromInt(-100)}},
		{"negative apr", customDebtRequest{Name: "X", Balance: decimal.NewFromInt(100), APR: decimal.NewFromInt(-5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.request(t, http.MethodPost, "/api/debts/custom", tc.req, true)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestSetAPROverride(t *testing.T) {
	e := newTestEnv(t)
	userID := e.store.users["user@example.com"].ID

	rec := e.request(t, http.MethodPut, "/api/apr-overrides/acc-1", aprOverrideRequest{APR: decimal.NewFromFloat(12.5)}, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := e.store.overrides[userID]["acc-1"]; !got.Equal(decimal.NewFromFloat(12.5)) {
		t.Fatalf("override = %s", got)
	}

	rec = e.request(t, http.MethodPut, "/api/apr-overrides/acc-1", aprOverrideRequest{APR: decimal.NewFromInt(-1)}, true)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative APR status = %d", rec.Code)
	}
}

func TestSpendingSummaryCaches(t *testing.T) {
	e := newTestEnv(t)

	for i := 0; i < 3; i++ {
		rec := e.request(t, http.MethodGet, "/api/analytics/spending?year=2026&month=8", nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if e.store.spendingCalls != 1 {
		t.Fatalf("spending calls = %d, want 1 (cached)", e.store.spendingCalls)
	}

	rec := e.request(t, http.MethodGet, "/api/analytics/spending?year=2026&month=13", nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid month status = %d", rec.Code)
	}
}

func TestDebtInsight(t *testing.T) {
	e := newTestEnv(t)

	rec := e.request(t, http.MethodGet, "/api/insights/debt", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp insightResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Insight == "" {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestBankItemsAndSync(t *testing.T) {
	e := newTestEnv(t)

	rec := e.request(t, http.MethodPost, "/api/items", linkItemRequest{AccessToken: "tok-1", Institution: "Test Bank"}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("link status = %d: %s", rec.Code, rec.Body)
	}
	// Linking queues an initial refresh.
	if len(e.publisher.published) != 1 {
		t.Fatalf("published = %v", e.publisher.published)
	}

	rec = e.request(t, http.MethodPost, "/api/items", linkItemRequest{Institution: "No token"}, true)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing token status = %d", rec.Code)
	}

	rec = e.request(t, http.MethodGet, "/api/items", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var items []bankItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || len(items) != 1 {
		t.Fatalf("items body = %s", rec.Body)
	}

	rec = e.request(t, http.MethodPost, "/api/sync", nil, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body)
	}
	var queued map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &queued); err != nil || queued["queued"] != 1 {
		t.Fatalf("sync body = %s", rec.Body)
	}
}

func TestSyncWithoutPublisher(t *testing.T) {
	e := newTestEnv(t)
	e.server.publisher = nil

	rec := e.request(t, http.MethodPost, "/api/sync", nil, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name string
		set  func(*http.Request)
		want string
	}{
		{"forwarded for", func(r *http.Request) { r.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2") }, "10.0.0.1"},
		{"real ip", func(r *http.Request) { r.Header.Set("X-Real-IP", "10.0.0.3") }, "10.0.0.3"},
		{"remote addr", func(r *http.Request) {}, "192.0.2.1:1234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.set(req)
			if got := extractClientIP(req); got != tc.want {
				t.Fatalf("extractClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
