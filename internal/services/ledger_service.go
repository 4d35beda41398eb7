package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"registro/internal/core"
	applog "registro/internal/log"
)

// Store is the persistence port of the ledger.
type Store interface {
	ListLookups(ctx context.Context, kind core.LookupKind) ([]core.Lookup, error)
	EnsureLookup(ctx context.Context, kind core.LookupKind, name string) (int64, error)
	AppendTransaction(ctx context.Context, t core.Transaction) (int64, error)
	QueryTransactions(ctx context.Context, f core.Filter) ([]core.Row, error)
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces committed transactions. It is optional.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, id int64, t core.Transaction) error
	Close() error
}

// Lookups holds the three reference lists.
type Lookups struct {
	Clients  []core.Lookup `json:"clients"`
	Services []core.Lookup `json:"services"`
	Sectors  []core.Lookup `json:"sectors"`
}

// LedgerService orchestrates ledger operations across SQLite and AMQP
type LedgerService struct {
	storage   Store
	publisher Publisher
	log       *applog.StructuredLogger
}

// NewLedgerService wires the store with an optional publisher; pass nil to
// disable event publishing.
func NewLedgerService(storage Store, publisher Publisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
		log:       applog.NewStructuredLogger(applog.Default().WithComponent(applog.ComponentLedger)),
	}
}

func (s *LedgerService) ListLookups(ctx context.Context, kind core.LookupKind) ([]core.Lookup, error) {
	items, err := s.storage.ListLookups(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return items, nil
}

// EnsureLookup returns the id of the named entry, creating it if absent.
func (s *LedgerService) EnsureLookup(ctx context.Context, kind core.LookupKind, name string) (int64, error) {
	id, err := s.storage.EnsureLookup(ctx, kind, name)
	if err != nil {
		return 0, fmt.Errorf("ensure %s: %w", kind, err)
	}
	return id, nil
}

// AllLookups loads clients, services and sectors concurrently.
func (s *LedgerService) AllLookups(ctx context.Context) (Lookups, error) {
	var out Lookups
	g, gctx := errgroup.WithContext(ctx)

	load := func(kind core.LookupKind, dst *[]core.Lookup) {
		g.Go(func() error {
			items, err := s.storage.ListLookups(gctx, kind)
			if err != nil {
				return fmt.Errorf("list %s: %w", kind, err)
			}
			*dst = items
			return nil
		})
	}
	load(core.Clients, &out.Clients)
	load(core.Services, &out.Services)
	load(core.Sectors, &out.Sectors)

	if err := g.Wait(); err != nil {
		return Lookups{}, err
	}
	return out, nil
}

// RecordTransaction saves a transaction locally and publishes a
// transaction.recorded message. Requester and notes are trimmed; a blank
// timestamp defaults to now.
func (s *LedgerService) RecordTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	t.Requester = strings.TrimSpace(t.Requester)
	t.Notes = strings.TrimSpace(t.Notes)
	if strings.TrimSpace(t.Timestamp) == "" {
		t.Timestamp = core.Now()
	}

	// Save to SQLite first (fast, reliable)
	id, err := s.storage.AppendTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishRecorded(ctx, id, t); err != nil {
		// Don't fail the request - transaction is committed
		s.log.LogError(ctx, "Failed to publish transaction recorded message", err,
			applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithTransaction(id, t.Timestamp, t.ClientID, t.ServiceID, t.Total()))
	}

	s.log.LogTransactionRecorded(ctx, id, t.Timestamp, t.ClientID, t.ServiceID, t.Total())
	return id, nil
}

func (s *LedgerService) publishRecorded(ctx context.Context, id int64, t core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping message", "id", id)
		return nil
	}
	return s.publisher.PublishTransactionRecorded(ctx, id, t)
}

// Query returns the rows matching f, newest first.
func (s *LedgerService) Query(ctx context.Context, f core.Filter) ([]core.Row, error) {
	rows, err := s.storage.QueryTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return rows, nil
}

// Dashboard queries with f and aggregates the result. fillGaps adds zero
// buckets for days without transactions.
func (s *LedgerService) Dashboard(ctx context.Context, f core.Filter, topN int, fillGaps bool) (core.Dashboard, error) {
	rows, err := s.Query(ctx, f)
	if err != nil {
		return core.Dashboard{}, err
	}
	d := core.BuildDashboard(rows, topN)
	if fillGaps {
		d.Daily = core.FillDailyGaps(d.Daily)
	}
	return d, nil
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
