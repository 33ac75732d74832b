package internal

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/tokenswap/config"
	"github.com/vadiminshakov/tokenswap/internal/events"
	"github.com/vadiminshakov/tokenswap/internal/metrics"
	"github.com/vadiminshakov/tokenswap/internal/services/catalog"
	"github.com/vadiminshakov/tokenswap/internal/services/swap"
	"github.com/vadiminshakov/tokenswap/internal/services/wallet"
	"github.com/vadiminshakov/tokenswap/internal/storage/swapjournal"
	"github.com/vadiminshakov/tokenswap/internal/tui"
	"github.com/vadiminshakov/tokenswap/internal/web"
	"github.com/vadiminshakov/tokenswap/pkg/numfmt"
)

const balanceStreamBuffer = 256

// App owns every long-running part of the swap engine.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	Catalog      *catalog.Store
	Wallet       *wallet.Ledger
	Orchestrator *swap.Orchestrator

	refresher *catalog.Refresher
	journal   *swapjournal.WALStore
	server    *web.Server
	format    *numfmt.Formatter
}

// NewApp builds the engine from cfg. Close releases the journal.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	feed, err := newFeed(cfg.Feed)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	store := catalog.NewStore()
	refresher, err := catalog.NewRefresher(feed, store, cfg.Icons.IconIndex(), cfg.Feed.PollInterval,
		logger.Named("catalog"), catalog.WithRecorder(collector))
	if err != nil {
		return nil, errors.Wrap(err, "create catalog refresher")
	}

	journal, err := swapjournal.NewWALStore(cfg.JournalDir)
	if err != nil {
		return nil, err
	}

	ledger := wallet.NewLedger(cfg.Wallet, logger.Named("wallet"))
	balances := events.NewBalanceBroadcaster(balanceStreamBuffer)

	orch, err := swap.NewOrchestrator(ledger, store, logger.Named("swap"),
		swap.WithSettlementDelay(cfg.Settlement.Delay, cfg.Settlement.Jitter),
		swap.WithJournal(journal),
		swap.WithPublisher(balances),
		swap.WithRecorder(collector),
	)
	if err != nil {
		_ = journal.Close()
		return nil, errors.Wrap(err, "create orchestrator")
	}

	format := numfmt.New(cfg.Locale)
	server, err := web.NewServer(cfg.ListenAddr, web.Deps{
		Swaps:       orch,
		Catalog:     store,
		Wallet:      ledger,
		Journal:     journal,
		BalanceFeed: balances,
		Streams:     collector,
		Metrics:     collector.Handler(),
		Formatter:   format,
	}, logger.Named("web"))
	if err != nil {
		_ = journal.Close()
		return nil, errors.Wrap(err, "create web server")
	}

	return &App{
		cfg:          cfg,
		logger:       logger,
		Catalog:      store,
		Wallet:       ledger,
		Orchestrator: orch,
		refresher:    refresher,
		journal:      journal,
		server:       server,
		format:       format,
	}, nil
}

// Run serves until ctx is done, or until the terminal form is closed.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.refresher.Run(ctx)
	})
	g.Go(func() error {
		return a.server.Start(ctx)
	})
	if a.cfg.TUI {
		g.Go(func() error {
			defer cancel()
			// first catalog load, so the pickers are not empty
			if err := a.refresher.Refresh(ctx); err != nil {
				a.logger.Warn("initial price refresh failed", zap.Error(err))
			}
			widget := tui.New(a.Orchestrator.NewSession(), a.Wallet, a.format, os.Stdout, a.logger.Named("tui"))
			return widget.Run(ctx)
		})
	}

	a.logger.Info("swap engine started",
		zap.String("listen", a.cfg.ListenAddr),
		zap.String("feed", a.cfg.Feed.Source),
		zap.Duration("poll", a.cfg.Feed.PollInterval),
		zap.Bool("tui", a.cfg.TUI))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases the swap journal.
func (a *App) Close() error {
	return a.journal.Close()
}
