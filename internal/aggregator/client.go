// Package aggregator implements the client for the third-party bank
// account-aggregation API: liabilities (credit cards and loans) and
// transactions, fetched per linked item with a user-scoped access token.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"induswealth/internal/core"
)

const aprTypePurchase = "purchase_apr"

type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type (
	// Account is the aggregator's account envelope; liabilities reference
	// accounts by ID.
	Account struct {
		AccountID string `json:"account_id"`
		Name      string `json:"name"`
		Subtype   string `json:"subtype"`
		Balances  struct {
			Current decimal.Decimal `json:"current"`
		} `json:"balances"`
	}

	// APR is one of possibly several rates reported on a credit account.
	APR struct {
		Type       string          `json:"apr_type"`
		Percentage decimal.Decimal `json:"apr_percentage"`
	}

	CreditLiability struct {
		AccountID            string           `json:"account_id"`
		APRs                 []APR            `json:"aprs"`
		MinimumPaymentAmount *decimal.Decimal `json:"minimum_payment_amount"`
	}

	LoanLiability struct {
		AccountID              string           `json:"account_id"`
		InterestRatePercentage *decimal.Decimal `json:"interest_rate_percentage"`
		MinimumPaymentAmount   *decimal.Decimal `json:"minimum_payment_amount"`
		LoanType               string           `json:"loan_type"`
	}

	LiabilitiesResponse struct {
		Accounts    []Account `json:"accounts"`
		Liabilities struct {
			Credit []CreditLiability `json:"credit"`
			Loans  []LoanLiability   `json:"loans"`
		} `json:"liabilities"`
	}

	Transaction struct {
		TransactionID string          `json:"transaction_id"`
		AccountID     string          `json:"account_id"`
		Name          string          `json:"name"`
		Amount        decimal.Decimal `json:"amount"` // positive = outflow
		Date          string          `json:"date"`   // YYYY-MM-DD
	}

	transactionsResponse struct {
		Transactions []Transaction `json:"transactions"`
		Total        int           `json:"total_transactions"`
	}
)

// GetLiabilities fetches the liability accounts linked to an access token.
func (c *Client) GetLiabilities(ctx context.Context, accessToken string) (*LiabilitiesResponse, error) {
	body := map[string]string{
		"client_id":    c.clientID,
		"secret":       c.secret,
		"access_token": accessToken,
	}

	var out LiabilitiesResponse
	if err := c.post(ctx, "/liabilities/get", body, &out); err != nil {
		return nil, fmt.Errorf("get liabilities: %w", err)
	}
	return &out, nil
}

// GetTransactions fetches transactions in the inclusive date range.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]Transaction, error) {
	body := map[string]string{
		"client_id":    c.clientID,
		"secret":       c.secret,
		"access_token": accessToken,
		"start_date":   start.Format("2006-01-02"),
		"end_date":     end.Format("2006-01-02"),
	}

	var out transactionsResponse
	if err := c.post(ctx, "/transactions/get", body, &out); err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	return out.Transactions, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("aggregator status %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ToAggregated joins accounts with their liability entries into the
// normalizer's input shape. Accounts without a liability entry are skipped;
// they are depository accounts, not debts.
func (r *LiabilitiesResponse) ToAggregated() []core.AggregatedLiability {
	accounts := make(map[string]Account, len(r.Accounts))
	for _, a := range r.Accounts {
		accounts[a.AccountID] = a
	}

	out := make([]core.AggregatedLiability, 0, len(r.Liabilities.Credit)+len(r.Liabilities.Loans))
	for _, credit := range r.Liabilities.Credit {
		acct, ok := accounts[credit.AccountID]
		if !ok {
			continue
		}
		out = append(out, core.AggregatedLiability{
			AccountID:      credit.AccountID,
			Name:           acct.Name,
			Balance:        acct.Balances.Current,
			APR:            purchaseAPR(credit.APRs),
			MinimumPayment: credit.MinimumPaymentAmount,
			Kind:           core.LiabilityCredit,
			Subtype:        acct.Subtype,
		})
	}
	for _, loan := range r.Liabilities.Loans {
		acct, ok := accounts[loan.AccountID]
		if !ok {
			continue
		}
		subtype := loan.LoanType
		if subtype == "" {
			subtype = acct.Subtype
		}
		out = append(out, core.AggregatedLiability{
			AccountID:      loan.AccountID,
			Name:           acct.Name,
			Balance:        acct.Balances.Current,
			APR:            loan.InterestRatePercentage,
			MinimumPayment: loan.MinimumPaymentAmount,
			Kind:           core.LiabilityLoan,
			Subtype:        subtype,
		})
	}
	return out
}

// purchaseAPR picks the purchase APR when tagged, otherwise the first rate
// reported.
func purchaseAPR(aprs []APR) *decimal.Decimal {
	for _, apr := range aprs {
		if apr.Type == aprTypePurchase {
			p := apr.Percentage
			return &p
		}
	}
	if len(aprs) > 0 {
		p := aprs[0].Percentage
		return &p
	}
	return nil
}
