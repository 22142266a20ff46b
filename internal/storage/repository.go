// Package storage implements the SQLite-backed relational cache: users,
// linked bank items, aggregator liability snapshots, user custom debts, APR
// overrides and categorized transactions.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"induswealth/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type (
	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// BankItem is one linked aggregator connection for a user.
	BankItem struct {
		ID          int64
		UserID      int64
		AccessToken string
		Institution string
		CreatedAt   time.Time
	}

	// Transaction is a cached, categorized bank transaction. Amounts are in
	// cents; positive means money out.
	Transaction struct {
		ID          string
		UserID      int64
		AccountID   string
		Description string
		AmountCents int64
		Category    string
		OccurredOn  string // YYYY-MM-DD
	}

	// CategoryTotal is one row of a monthly spending summary.
	CategoryTotal struct {
		Category   string `json:"category"`
		TotalCents int64  `json:"total_cents"`
	}

	// SpendingSummary aggregates one month of cached transactions.
	SpendingSummary struct {
		Year         int             `json:"year"`
		Month        int             `json:"month"`
		IncomeCents  int64           `json:"income_cents"`
		ExpenseCents int64           `json:"expense_cents"`
		NetCents     int64           `json:"net_cents"`
		ByCategory   []CategoryTotal `json:"by_category"`
	}
)

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("create user id: %w", err)
	}
	return User{ID: id, Email: email, PasswordHash: passwordHash}, nil
}

func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

// --- bank items ---

func (r *SQLiteRepository) CreateBankItem(ctx context.Context, userID int64, accessToken, institution string) (BankItem, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bank_items (user_id, access_token, institution) VALUES (?, ?, ?)`,
		userID, accessToken, institution)
	if err != nil {
		return BankItem{}, fmt.Errorf("create bank item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return BankItem{}, fmt.Errorf("create bank item id: %w", err)
	}
	return BankItem{ID: id, UserID: userID, AccessToken: accessToken, Institution: institution}, nil
}

func (r *SQLiteRepository) GetBankItem(ctx context.Context, id int64) (BankItem, error) {
	var item BankItem
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, access_token, institution, created_at FROM bank_items WHERE id = ?`,
		id).Scan(&item.ID, &item.UserID, &item.AccessToken, &item.Institution, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BankItem{}, ErrNotFound
	}
	if err != nil {
		return BankItem{}, fmt.Errorf("get bank item: %w", err)
	}
	item.CreatedAt = parseTimestamp(createdAt)
	return item, nil
}

func (r *SQLiteRepository) ListBankItems(ctx context.Context, userID int64) ([]BankItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, access_token, institution, created_at FROM bank_items WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list bank items: %w", err)
	}
	defer rows.Close()

	var items []BankItem
	for rows.Next() {
		var item BankItem
		var createdAt string
		if err := rows.Scan(&item.ID, &item.UserID, &item.AccessToken, &item.Institution, &createdAt); err != nil {
			return nil, fmt.Errorf("scan bank item: %w", err)
		}
		item.CreatedAt = parseTimestamp(createdAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListAllBankItems returns every linked item across users, oldest first.
// The sync worker's periodic refresh walks this list.
func (r *SQLiteRepository) ListAllBankItems(ctx context.Context) ([]BankItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, access_token, institution, created_at FROM bank_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all bank items: %w", err)
	}
	defer rows.Close()

	var items []BankItem
	for rows.Next() {
		var item BankItem
		var createdAt string
		if err := rows.Scan(&item.ID, &item.UserID, &item.AccessToken, &item.Institution, &createdAt); err != nil {
			return nil, fmt.Errorf("scan bank item: %w", err)
		}
		item.CreatedAt = parseTimestamp(createdAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- liability accounts ---

// UpsertLiability writes one aggregator liability snapshot for a user.
func (r *SQLiteRepository) UpsertLiability(ctx context.Context, userID, itemID int64, l core.AggregatedLiability) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO liability_accounts (account_id, user_id, item_id, name, kind, subtype, balance, apr, minimum_payment, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			subtype = excluded.subtype,
			balance = excluded.balance,
			apr = excluded.apr,
			minimum_payment = excluded.minimum_payment,
			synced_at = CURRENT_TIMESTAMP`,
		l.AccountID, userID, itemID, l.Name, string(l.Kind), l.Subtype,
		l.Balance.String(), decPtrString(l.APR), decPtrString(l.MinimumPayment))
	if err != nil {
		return fmt.Errorf("upsert liability %s: %w", l.AccountID, err)
	}

	slog.InfoContext(ctx, "Liability cached",
		"account_id", l.AccountID,
		"user_id", userID,
		"kind", string(l.Kind))
	return nil
}

// ListLiabilities returns the cached liability snapshot for a user in the
// normalizer's input shape.
func (r *SQLiteRepository) ListLiabilities(ctx context.Context, userID int64) ([]core.AggregatedLiability, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, name, kind, subtype, balance, apr, minimum_payment
		FROM liability_accounts WHERE user_id = ? ORDER BY account_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	var out []core.AggregatedLiability
	for rows.Next() {
		var (
			l            core.AggregatedLiability
			kind         string
			balance      string
			apr, minimum sql.NullString
		)
		if err := rows.Scan(&l.AccountID, &l.Name, &kind, &l.Subtype, &balance, &apr, &minimum); err != nil {
			return nil, fmt.Errorf("scan liability: %w", err)
		}
		l.Kind = core.LiabilityKind(kind)
		if l.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("liability %s balance: %w", l.AccountID, err)
		}
		if l.APR, err = nullDecimal(apr); err != nil {
			return nil, fmt.Errorf("liability %s apr: %w", l.AccountID, err)
		}
		if l.MinimumPayment, err = nullDecimal(minimum); err != nil {
			return nil, fmt.Errorf("liability %s minimum payment: %w", l.AccountID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// --- custom debts ---

func (r *SQLiteRepository) CreateCustomDebt(ctx context.Context, userID int64, d core.CustomDebt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO custom_debts (id, user_id, name, balance, apr, minimum_payment, debt_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, userID, d.Name, d.Balance.String(), d.APR.String(), d.MinimumPayment.String(), string(d.Type))
	if err != nil {
		return fmt.Errorf("create custom debt: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateCustomDebt(ctx context.Context, userID int64, d core.CustomDebt) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE custom_debts
		SET name = ?, balance = ?, apr = ?, minimum_payment = ?, debt_type = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		d.Name, d.Balance.String(), d.APR.String(), d.MinimumPayment.String(), string(d.Type), d.ID, userID)
	if err != nil {
		return fmt.Errorf("update custom debt: %w", err)
	}
	return requireRow(res, "update custom debt")
}

func (r *SQLiteRepository) DeleteCustomDebt(ctx context.Context, userID int64, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM custom_debts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete custom debt: %w", err)
	}
	return requireRow(res, "delete custom debt")
}

func (r *SQLiteRepository) ListCustomDebts(ctx context.Context, userID int64) ([]core.CustomDebt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, balance, apr, minimum_payment, debt_type
		FROM custom_debts WHERE user_id = ? ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list custom debts: %w", err)
	}
	defer rows.Close()

	var out []core.CustomDebt
	for rows.Next() {
		var (
			d                     core.CustomDebt
			balance, apr, minimum string
			debtType              string
		)
		if err := rows.Scan(&d.ID, &d.Name, &balance, &apr, &minimum, &debtType); err != nil {
			return nil, fmt.Errorf("scan custom debt: %w", err)
		}
		if d.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("custom debt %s balance: %w", d.ID, err)
		}
		if d.APR, err = decimal.NewFromString(apr); err != nil {
			return nil, fmt.Errorf("custom debt %s apr: %w", d.ID, err)
		}
		if d.MinimumPayment, err = decimal.NewFromString(minimum); err != nil {
			return nil, fmt.Errorf("custom debt %s minimum payment: %w", d.ID, err)
		}
		d.Type = core.DebtType(debtType)
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- APR overrides ---

func (r *SQLiteRepository) SetAPROverride(ctx context.Context, userID int64, accountID string, apr decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO apr_overrides (user_id, account_id, apr)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, account_id) DO UPDATE SET
			apr = excluded.apr,
			updated_at = CURRENT_TIMESTAMP`,
		userID, accountID, apr.String())
	if err != nil {
		return fmt.Errorf("set apr override: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) APROverrides(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id, apr FROM apr_overrides WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list apr overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]decimal.Decimal)
	for rows.Next() {
		var accountID, apr string
		if err := rows.Scan(&accountID, &apr); err != nil {
			return nil, fmt.Errorf("scan apr override: %w", err)
		}
		d, err := decimal.NewFromString(apr)
		if err != nil {
			return nil, fmt.Errorf("apr override %s: %w", accountID, err)
		}
		overrides[accountID] = d
	}
	return overrides, rows.Err()
}

// --- transactions ---

func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, t Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, account_id, description, amount_cents, category, occurred_on)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			amount_cents = excluded.amount_cents,
			category = excluded.category,
			occurred_on = excluded.occurred_on`,
		t.ID, t.UserID, t.AccountID, t.Description, t.AmountCents, t.Category, t.OccurredOn)
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}
	return nil
}

// MonthlySpending aggregates the user's cached transactions for one month.
// Positive amounts are outflows, negative amounts inflows.
func (r *SQLiteRepository) MonthlySpending(ctx context.Context, userID int64, year, month int) (SpendingSummary, error) {
	summary := SpendingSummary{Year: year, Month: month, ByCategory: []CategoryTotal{}}
	prefix := fmt.Sprintf("%04d-%02d-", year, month)

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN amount_cents < 0 THEN -amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0)
		FROM transactions WHERE user_id = ? AND occurred_on LIKE ? || '%'`,
		userID, prefix).Scan(&summary.IncomeCents, &summary.ExpenseCents)
	if err != nil {
		return summary, fmt.Errorf("month totals: %w", err)
	}
	summary.NetCents = summary.IncomeCents - summary.ExpenseCents

	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND occurred_on LIKE ? || '%' AND amount_cents > 0
		GROUP BY category ORDER BY SUM(amount_cents) DESC`,
		userID, prefix)
	if err != nil {
		return summary, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.TotalCents); err != nil {
			return summary, fmt.Errorf("scan category sum: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, ct)
	}
	return summary, rows.Err()
}

// --- helpers ---

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decPtrString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
