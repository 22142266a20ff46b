// Package worker implements the liability sync worker: it consumes sync
// messages, pulls fresh liabilities and transactions from the aggregator,
// categorizes the transactions and upserts everything into the cache.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"induswealth/internal/aggregator"
	"induswealth/internal/amqp"
	"induswealth/internal/core"
	"induswealth/internal/log"
	"induswealth/internal/storage"
)

// transactionLookback is how far back each sync fetches transactions.
const transactionLookback = 90 * 24 * time.Hour

var centsPerUnit = decimal.NewFromInt(100)

// LiabilitySource is the aggregator surface the worker depends on.
type LiabilitySource interface {
	GetLiabilities(ctx context.Context, accessToken string) (*aggregator.LiabilitiesResponse, error)
	GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]aggregator.Transaction, error)
}

// Store is the storage surface the worker depends on.
type Store interface {
	GetBankItem(ctx context.Context, id int64) (storage.BankItem, error)
	ListAllBankItems(ctx context.Context) ([]storage.BankItem, error)
	UpsertLiability(ctx context.Context, userID, itemID int64, l core.AggregatedLiability) error
	UpsertTransaction(ctx context.Context, t storage.Transaction) error
}

// Categorizer assigns a spending category to a transaction description.
type Categorizer interface {
	Categorize(ctx context.Context, description string) (string, bool)
}

type SyncWorker struct {
	store       Store
	source      LiabilitySource
	categorizer Categorizer
}

func NewSyncWorker(store Store, source LiabilitySource, categorizer Categorizer) *SyncWorker {
	return &SyncWorker{
		store:       store,
		source:      source,
		categorizer: categorizer,
	}
}

// HandleSyncMessage refreshes the bank item named by one AMQP message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LiabilitySyncMessage) error {
	slog.InfoContext(ctx, "Processing liability sync message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldUserID, msg.UserID,
		log.FieldItemID, msg.ItemID)

	item, err := w.store.GetBankItem(ctx, msg.ItemID)
	if err != nil {
		return fmt.Errorf("get bank item %d: %w", msg.ItemID, err)
	}
	if item.UserID != msg.UserID {
		return fmt.Errorf("bank item %d does not belong to user %d", msg.ItemID, msg.UserID)
	}

	return w.refreshItem(ctx, item)
}

// RefreshAll walks every linked item; the periodic ticker calls this to
// catch up on anything a lost message skipped.
func (w *SyncWorker) RefreshAll(ctx context.Context) error {
	items, err := w.store.ListAllBankItems(ctx)
	if err != nil {
		return fmt.Errorf("list bank items: %w", err)
	}

	for _, item := range items {
		if err := w.refreshItem(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Item refresh failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldItemID, item.ID,
				log.FieldUserID, item.UserID,
				log.FieldError, err)
		}
	}
	return nil
}

// refreshItem pulls liabilities and transactions for one item concurrently
// and upserts the results.
func (w *SyncWorker) refreshItem(ctx context.Context, item storage.BankItem) error {
	var (
		liabilities  *aggregator.LiabilitiesResponse
		transactions []aggregator.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		liabilities, err = w.source.GetLiabilities(gctx, item.AccessToken)
		if err != nil {
			return fmt.Errorf("fetch liabilities: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		now := time.Now()
		var err error
		transactions, err = w.source.GetTransactions(gctx, item.AccessToken, now.Add(-transactionLookback), now)
		if err != nil {
			return fmt.Errorf("fetch transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	aggregated := liabilities.ToAggregated()
	for _, l := range aggregated {
		if err := w.store.UpsertLiability(ctx, item.UserID, item.ID, l); err != nil {
			return err
		}
	}

	for _, t := range transactions {
		category := "other"
		if w.categorizer != nil {
			category, _ = w.categorizer.Categorize(ctx, t.Name)
		}
		row := storage.Transaction{
			ID:          t.TransactionID,
			UserID:      item.UserID,
			AccountID:   t.AccountID,
			Description: t.Name,
			AmountCents: t.Amount.Mul(centsPerUnit).Round(0).IntPart(),
			Category:    category,
			OccurredOn:  t.Date,
		}
		if err := w.store.UpsertTransaction(ctx, row); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Bank item refreshed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldItemID, item.ID,
		log.FieldUserID, item.UserID,
		"liabilities", len(aggregated),
		"transactions", len(transactions))
	return nil
}
