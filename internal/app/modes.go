package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
	"github.com/Mikesteam1234/crypfinder/internal/notify"
	"github.com/Mikesteam1234/crypfinder/internal/trader"
)

// TradeMode runs the full trading loop: one buy-then-sell cycle at a time,
// guarded by a per-product distributed lock, with an optional background
// archive loop when archiving is enabled.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	logger := a.logger.With(slog.String("mode", "trade"))

	t := trader.New(deps.Exchange, trader.Config{
		ProductID:        a.cfg.Trading.ProductID,
		TakerFeeRate:     a.cfg.Trading.TakerFeeRate,
		PriceDelta:       a.cfg.Trading.PriceDelta,
		ProfitSplit:      a.cfg.Trading.ProfitSplit,
		SplitCurrency:    a.cfg.Trading.SplitCurrency,
		TradeProfileID:   a.cfg.Trading.TradeProfileID,
		DepositProfileID: a.cfg.Trading.DepositProfileID,
		PollAttempts:     a.cfg.Trading.PollAttempts,
		PollInterval:     a.cfg.Trading.PollInterval.Duration,
		OrderRateLimit:   a.cfg.Trading.OrderRateLimit,
	}, a.logger).
		WithJournal(deps.CycleStore, deps.OrderStore, deps.TransferStore).
		WithPriceCache(deps.PriceCache).
		WithRateLimiter(deps.RateLimiter)

	if recent, err := deps.CycleStore.ListRecent(ctx, domain.ListOpts{Limit: 5}); err != nil {
		logger.WarnContext(ctx, "could not load recent cycles",
			slog.String("error", err.Error()))
	} else if len(recent) > 0 {
		last := recent[0]
		logger.InfoContext(ctx, "resuming after previous cycles",
			slog.Int("recent", len(recent)),
			slog.String("last_cycle_id", last.ID),
			slog.String("last_status", string(last.Status)),
		)
	}

	// A cycle can poll two orders to exhaustion, so the lock must outlive
	// both poll budgets plus transport time.
	pollBudget := time.Duration(a.cfg.Trading.PollAttempts) * a.cfg.Trading.PollInterval.Duration
	lockTTL := 2*pollBudget + time.Minute
	lockKey := "cycle:" + a.cfg.Trading.ProductID

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			unlock, err := deps.LockManager.Acquire(ctx, lockKey, lockTTL)
			if err != nil {
				if errors.Is(err, domain.ErrLockHeld) {
					logger.WarnContext(ctx, "cycle lock held elsewhere, waiting",
						slog.String("key", lockKey),
					)
					if err := sleepCtx(ctx, a.cfg.Trading.CycleInterval.Duration); err != nil {
						return err
					}
					continue
				}
				return fmt.Errorf("app: acquiring cycle lock: %w", err)
			}

			cycle, err := t.RunCycle(ctx)
			unlock()
			a.notifyCycle(ctx, deps.Notifier, cycle, err)
			if err != nil {
				logger.ErrorContext(ctx, "cycle failed",
					slog.String("cycle_id", cycle.ID),
					slog.String("error", err.Error()),
				)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
			}

			if err := sleepCtx(ctx, a.cfg.Trading.CycleInterval.Duration); err != nil {
				return err
			}
		}
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			return a.archiveLoop(ctx, deps)
		})
	}

	return g.Wait()
}

// notifyCycle sends the notification matching the cycle's terminal state.
// Delivery failures are logged by the notifier itself.
func (a *App) notifyCycle(ctx context.Context, notifier *notify.Notifier, cycle domain.Cycle, runErr error) {
	if notifier == nil {
		return
	}
	switch cycle.Status {
	case domain.CycleStatusCompleted:
		_ = notifier.Notify(ctx, notify.EventCycleCompleted,
			"Cycle completed",
			fmt.Sprintf("%s closed with profit %.8f", cycle.ProductID, cycle.Profit),
		)
		if cycle.SplitAmount > 0 {
			_ = notifier.Notify(ctx, notify.EventProfitSplit,
				"Profit split transferred",
				fmt.Sprintf("%.8f %s moved to the deposit profile", cycle.SplitAmount, cycle.SplitCurrency),
			)
		}
	case domain.CycleStatusAbandoned:
		_ = notifier.Notify(ctx, notify.EventCycleAbandoned,
			"Cycle abandoned",
			fmt.Sprintf("%s order timed out and was cancelled", cycle.ProductID),
		)
	case domain.CycleStatusFailed:
		reason := cycle.FailReason
		if reason == "" && runErr != nil {
			reason = runErr.Error()
		}
		_ = notifier.Notify(ctx, notify.EventCycleFailed,
			"Cycle failed",
			fmt.Sprintf("%s: %s", cycle.ProductID, reason),
		)
	}
}

// archiveLoop periodically moves journal rows older than the retention
// window into object storage.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) error {
	logger := a.logger.With(slog.String("component", "archive_loop"))
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
			if err := a.runArchive(ctx, deps, cutoff); err != nil {
				logger.ErrorContext(ctx, "archive run failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// MonitorMode observes without trading: it periodically reads the ticker and
// available balances, publishes prices to the cache, and logs what it sees.
// No orders are ever placed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	logger := a.logger.With(slog.String("mode", "monitor"))
	productID := a.cfg.Trading.ProductID
	base, quote, _ := strings.Cut(productID, "-")

	profiles, err := deps.Exchange.GetProfiles(ctx)
	if err != nil {
		logger.WarnContext(ctx, "listing profiles failed",
			slog.String("error", err.Error()),
		)
	} else {
		for _, p := range profiles {
			logger.InfoContext(ctx, "profile",
				slog.String("id", p.ID),
				slog.String("name", p.Name),
				slog.Bool("active", p.Active),
			)
		}
	}

	ticker := time.NewTicker(a.cfg.Trading.CycleInterval.Duration)
	defer ticker.Stop()

	for {
		price, err := deps.Exchange.GetTicker(ctx, productID)
		if err != nil {
			logger.WarnContext(ctx, "ticker fetch failed",
				slog.String("error", err.Error()),
			)
		} else {
			if cacheErr := deps.PriceCache.SetPrice(ctx, productID, price, time.Now().UTC()); cacheErr != nil {
				logger.WarnContext(ctx, "caching price failed",
					slog.String("error", cacheErr.Error()),
				)
			}

			baseBal, baseErr := deps.Exchange.GetAvailableBalance(ctx, base)
			quoteBal, quoteErr := deps.Exchange.GetAvailableBalance(ctx, quote)
			if baseErr != nil || quoteErr != nil {
				logger.WarnContext(ctx, "balance fetch failed",
					slog.Any("base_error", baseErr),
					slog.Any("quote_error", quoteErr),
				)
			}
			logger.InfoContext(ctx, "market observation",
				slog.String("product", productID),
				slog.Float64("price", price),
				slog.Float64("base_balance", baseBal),
				slog.Float64("quote_balance", quoteBal),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ArchiveMode performs a single archive run and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return errors.New("app: archive mode requires object storage and the journal database")
	}

	existing, err := deps.BlobReader.List(ctx, "archive/")
	if err != nil {
		return fmt.Errorf("app: listing existing archives: %w", err)
	}
	a.logger.InfoContext(ctx, "archive store inspected",
		slog.Int("existing_objects", len(existing)))

	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	return a.runArchive(ctx, deps, cutoff)
}

// runArchive archives all three journal tables up to the cutoff and logs
// the row counts. When pruning is enabled the archived rows are then deleted,
// children before cycles to satisfy the foreign keys.
func (a *App) runArchive(ctx context.Context, deps *Dependencies, cutoff time.Time) error {
	cycles, err := deps.Archiver.ArchiveCycles(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archiving cycles: %w", err)
	}
	orders, err := deps.Archiver.ArchiveOrders(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archiving orders: %w", err)
	}
	transfers, err := deps.Archiver.ArchiveTransfers(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archiving transfers: %w", err)
	}

	a.logger.InfoContext(ctx, "archive run complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("cycles", cycles),
		slog.Int64("orders", orders),
		slog.Int64("transfers", transfers),
	)

	if !a.cfg.Archive.Prune {
		return nil
	}

	if _, err := deps.TransferStore.DeleteBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("app: pruning transfers: %w", err)
	}
	if _, err := deps.OrderStore.DeleteBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("app: pruning orders: %w", err)
	}
	pruned, err := deps.CycleStore.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: pruning cycles: %w", err)
	}
	a.logger.InfoContext(ctx, "journal pruned",
		slog.Time("cutoff", cutoff),
		slog.Int64("cycles", pruned),
	)
	return nil
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
