package subsplit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xraph/subsplit/payment"
	"github.com/xraph/subsplit/plugin"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// Defaults applied by New.
const (
	DefaultMaxPageSize  = 100
	DefaultMaxBatchSize = 500
)

const tracerName = "github.com/xraph/subsplit"

// Ledger is the subscription billing and revenue-split engine.
//
// Every public operation runs its reads and writes under one mutex, so
// operations on the same Ledger never interleave. Plugin hooks run after the
// mutex is released. Each mutating operation stages its writes and commits
// them with a single Store.Commit once all validation, arithmetic, and
// payment calls have succeeded.
type Ledger struct {
	mu sync.Mutex

	store    store.Store
	payments payment.Provider
	plugins  *plugin.Registry
	logger   *slog.Logger
	tracer   trace.Tracer

	// Configuration
	maxPageSize  int
	maxBatchSize int
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        s,
		payments:     payment.AccountingOnly{},
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		tracer:       noop.NewTracerProvider().Tracer(tracerName),
		maxPageSize:  DefaultMaxPageSize,
		maxBatchSize: DefaultMaxBatchSize,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithPaymentProvider sets the collaborator that collects renewals and pays
// out withdrawals. The default is payment.AccountingOnly.
func WithPaymentProvider(p payment.Provider) Option {
	return func(l *Ledger) {
		if p != nil {
			l.payments = p
		}
	}
}

// WithTracerProvider enables OpenTelemetry spans for every operation.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Ledger) {
		if tp != nil {
			l.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithMaxPageSize caps the limit accepted by the list queries.
func WithMaxPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxPageSize = n
		}
	}
}

// WithMaxBatchSize caps max_count for ProcessDueSubscriptions.
func WithMaxBatchSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxBatchSize = n
		}
	}
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Start migrates the store, initializes the id sequence, and notifies plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	if err := l.Initialize(ctx, types.FromTime(time.Now())); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("subsplit started",
		"max_page_size", l.maxPageSize,
		"max_batch_size", l.maxBatchSize,
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Initialize writes the subscription id sequence if it does not exist yet.
// Calling it again is a no-op. Operations also work on an uninitialized
// store; the sequence then starts from zero on first create.
func (l *Ledger) Initialize(ctx context.Context, now Timestamp) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok, err := subscription.GetSequence(ctx, l.store)
	if err != nil {
		return fmt.Errorf("subsplit: read sequence: %w", err)
	}
	if ok {
		return nil
	}

	txn := store.Begin(l.store)
	if err := subscription.PutSequence(txn, subscription.Sequence{InitializedAt: now}); err != nil {
		return err
	}
	return l.commit(ctx, txn)
}

// locked runs fn while holding the engine lock. Plugin hooks are emitted
// by callers after it returns, so a hook may call back into the Ledger.
func (l *Ledger) locked(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}

// commit flushes a transaction, tagging backend failures as ErrTransactionFailed.
func (l *Ledger) commit(ctx context.Context, txn *store.Txn) error {
	if err := txn.Commit(ctx, l.store); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return nil
}

// startSpan opens an operation span.
func (l *Ledger) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "subsplit."+op, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
