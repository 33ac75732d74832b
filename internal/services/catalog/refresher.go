package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/pkg/retrier"
)

const defaultPollInterval = 30 * time.Second

// Feed is the upstream source of price records.
type Feed interface {
	Fetch(ctx context.Context) ([]domain.PriceRecord, error)
}

type refreshRecorder interface {
	CatalogRefreshed(tokens int, err error)
}

// Refresher polls a Feed and keeps a Store up to date.
type Refresher struct {
	feed     Feed
	store    *Store
	icons    IconIndex
	interval time.Duration
	retrier  *retrier.Retrier
	metrics  refreshRecorder
	logger   *zap.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithRetrier overrides the retry policy of each fetch.
func WithRetrier(r *retrier.Retrier) RefresherOption {
	return func(rf *Refresher) {
		rf.retrier = r
	}
}

// WithRecorder reports refresh outcomes to m.
func WithRecorder(m refreshRecorder) RefresherOption {
	return func(rf *Refresher) {
		rf.metrics = m
	}
}

// NewRefresher creates a refresher polling feed every interval.
func NewRefresher(feed Feed, store *Store, icons IconIndex, interval time.Duration, logger *zap.Logger, opts ...RefresherOption) (*Refresher, error) {
	if feed == nil {
		return nil, errors.New("feed is required for Refresher")
	}
	if store == nil {
		return nil, errors.New("store is required for Refresher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}

	r := &Refresher{
		feed:     feed,
		store:    store,
		icons:    icons,
		interval: interval,
		logger:   logger,
	}
	r.retrier = retrier.New(
		retrier.WithMaxRetries(3),
		retrier.WithInitialInterval(500*time.Millisecond),
		retrier.WithOnRetry(func(attempt int, err error) {
			logger.Debug("price feed fetch failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		}),
	)
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Refresh fetches the feed once and publishes the result to the store.
func (r *Refresher) Refresh(ctx context.Context) error {
	records, err := retrier.DoWithData(r.retrier, ctx, r.feed.Fetch)
	if err != nil {
		err = errors.Wrap(err, "fetch price feed")
		r.store.Fail(err)
		r.record(0, err)
		return err
	}

	tokens := Build(records, r.icons)
	r.store.Update(tokens)
	r.record(len(tokens), nil)
	r.logger.Debug("catalog refreshed", zap.Int("records", len(records)), zap.Int("tokens", len(tokens)))
	return nil
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("initial catalog refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting catalog refresh loop", zap.Duration("poll_interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("context done, stopping catalog refresh loop")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("catalog refresh failed", zap.Error(err))
			}
		}
	}
}

func (r *Refresher) record(tokens int, err error) {
	if r.metrics != nil {
		r.metrics.CatalogRefreshed(tokens, err)
	}
}
