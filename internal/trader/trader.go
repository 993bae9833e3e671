// Package trader implements the position cycle controller: submit a buy
// order, poll it to a fill, later submit a sell, poll that to a fill, and
// skim a fraction of realized profit into the deposit profile. Each phase
// runs to completion before the next begins; the shared position record is
// only ever mutated by the single active phase.
package trader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// Exchange is the interface through which the trader reaches the exchange.
// It is implemented by the coinbase platform client.
type Exchange interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (string, error)
	ProfileTransfer(ctx context.Context, from, to, currency string, amount float64) (domain.Transfer, error)
	GetTicker(ctx context.Context, productID string) (float64, error)
	GetAvailableBalance(ctx context.Context, currency string) (float64, error)
}

// Config holds the strategy parameters for one trader. The numeric strategy
// itself (delta and fee values) is owned by configuration, not by this
// package.
type Config struct {
	ProductID        string  // e.g. "BTC-USD"
	TakerFeeRate     float64 // e.g. 0.005
	PriceDelta       float64 // fractional offset applied to the market price
	ProfitSplit      float64 // fraction of realized profit to skim, e.g. 0.4
	SplitCurrency    string  // currency the profit split is transferred in
	TradeProfileID   string  // profile the bot trades out of
	DepositProfileID string  // profile the profit split lands in
	PollAttempts     int     // status checks per order before cancelling
	PollInterval     time.Duration
	OrderRateLimit   int // order submissions allowed per second
}

// defaults mirrors the parameters the bot has always traded with.
const (
	defaultPollAttempts   = 10
	defaultPollInterval   = 6 * time.Second
	defaultProfitSplit    = 0.4
	defaultOrderRateLimit = 5
)

func (c *Config) applyDefaults() {
	if c.PollAttempts <= 0 {
		c.PollAttempts = defaultPollAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ProfitSplit <= 0 {
		c.ProfitSplit = defaultProfitSplit
	}
	if c.SplitCurrency == "" {
		c.SplitCurrency = quoteCurrency(c.ProductID)
	}
	if c.OrderRateLimit <= 0 {
		c.OrderRateLimit = defaultOrderRateLimit
	}
}

// quoteCurrency extracts the quote leg from a product pair ("BTC-USD" → "USD").
func quoteCurrency(productID string) string {
	if _, quote, ok := strings.Cut(productID, "-"); ok {
		return quote
	}
	return productID
}

// Trader runs position cycles for a single product against a single shared
// position record. A Trader must not be shared across concurrently running
// cycles; the app layer holds a per-product lock around RunCycle.
type Trader struct {
	exchange Exchange
	cfg      Config
	position *domain.Position
	heldSize float64 // base-currency size of the held position, set at buy fill

	cycles    domain.CycleStore
	orders    domain.OrderStore
	transfers domain.TransferStore
	prices    domain.PriceCache
	limiter   domain.RateLimiter

	logger *slog.Logger
}

// New creates a Trader for the given exchange and configuration.
func New(exchange Exchange, cfg Config, logger *slog.Logger) *Trader {
	cfg.applyDefaults()
	return &Trader{
		exchange: exchange,
		cfg:      cfg,
		position: &domain.Position{},
		logger:   logger.With(slog.String("component", "trader"), slog.String("product", cfg.ProductID)),
	}
}

// WithJournal attaches persistence for cycles, orders, and transfers.
// Journal write failures are logged, not fatal: losing a journal row must
// never interrupt an in-flight position.
func (t *Trader) WithJournal(cycles domain.CycleStore, orders domain.OrderStore, transfers domain.TransferStore) *Trader {
	t.cycles = cycles
	t.orders = orders
	t.transfers = transfers
	return t
}

// WithPriceCache attaches a cache that receives every ticker observation.
func (t *Trader) WithPriceCache(prices domain.PriceCache) *Trader {
	t.prices = prices
	return t
}

// WithRateLimiter attaches a pre-submission rate limit check.
func (t *Trader) WithRateLimiter(limiter domain.RateLimiter) *Trader {
	t.limiter = limiter
	return t
}

// Position returns the shared position record. Exposed for the monitor mode
// and tests.
func (t *Trader) Position() *domain.Position {
	return t.position
}

// RunCycle executes one trading cycle: a buy phase followed by a sell phase.
// If a previous sell timed out and the position is still held, the buy phase
// is skipped and the cycle resumes with a fresh sell attempt. The returned
// Cycle reflects the terminal state reached; a non-nil error is a fatal
// cycle-ending condition for the operator to inspect, never a crash.
func (t *Trader) RunCycle(ctx context.Context) (domain.Cycle, error) {
	cycle := domain.Cycle{
		ID:            uuid.New().String(),
		ProductID:     t.cfg.ProductID,
		Status:        domain.CycleStatusBuying,
		SplitCurrency: t.cfg.SplitCurrency,
		StartedAt:     time.Now().UTC(),
	}

	if !t.position.Exists {
		t.journalCreate(ctx, &cycle)

		balance, err := t.exchange.GetAvailableBalance(ctx, quoteCurrency(t.cfg.ProductID))
		if err != nil {
			return t.fail(ctx, cycle, fmt.Errorf("trader: read balance: %w", err))
		}
		if balance <= 0 {
			return t.fail(ctx, cycle, fmt.Errorf("trader: no available %s balance", quoteCurrency(t.cfg.ProductID)))
		}

		price, err := t.observePrice(ctx)
		if err != nil {
			return t.fail(ctx, cycle, err)
		}

		if err := t.BuyPosition(ctx, &cycle, balance, price); err != nil {
			return t.fail(ctx, cycle, err)
		}
		if !t.position.Exists {
			// Timed out and cancelled cleanly; nothing was bought.
			cycle.Status = domain.CycleStatusAbandoned
			t.finish(ctx, &cycle)
			return cycle, nil
		}
	} else {
		// Carrying a position from a cycle whose sell did not fill.
		cycle.Status = domain.CycleStatusHolding
		cycle.AcquiredPrice = t.position.AcquiredPrice
		cycle.AcquiredCost = t.position.AcquiredCost
		cycle.Size = t.heldSize
		t.journalCreate(ctx, &cycle)
	}

	price, err := t.observePrice(ctx)
	if err != nil {
		return t.fail(ctx, cycle, err)
	}

	if err := t.SellPosition(ctx, &cycle, t.heldSize, price); err != nil {
		return t.fail(ctx, cycle, err)
	}
	if t.position.Exists {
		// Sell timed out and was cancelled; the position carries over.
		cycle.Status = domain.CycleStatusAbandoned
		t.finish(ctx, &cycle)
		return cycle, nil
	}

	cycle.Status = domain.CycleStatusCompleted
	t.finish(ctx, &cycle)
	return cycle, nil
}

// observePrice reads the current market price and records it in the price
// cache when one is attached.
func (t *Trader) observePrice(ctx context.Context) (float64, error) {
	price, err := t.exchange.GetTicker(ctx, t.cfg.ProductID)
	if err != nil {
		return 0, fmt.Errorf("trader: read ticker: %w", err)
	}
	if t.prices != nil {
		if err := t.prices.SetPrice(ctx, t.cfg.ProductID, price, time.Now().UTC()); err != nil {
			t.logger.Warn("price cache write failed", slog.String("error", err.Error()))
		}
	}
	return price, nil
}

// checkOrderBudget consults the rate limiter before an order submission.
func (t *Trader) checkOrderBudget(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	allowed, err := t.limiter.Allow(ctx, "orders:"+t.cfg.ProductID, t.cfg.OrderRateLimit, time.Second)
	if err != nil {
		return fmt.Errorf("trader: rate limiter: %w", err)
	}
	if !allowed {
		return fmt.Errorf("trader: order submission throttled: %w", domain.ErrRateLimited)
	}
	return nil
}

// cancelOrder issues exactly one cancellation and verifies the exchange
// acknowledged the same identifier. A mismatched acknowledgment leaves an
// order of unknown state outstanding, which is fatal for the cycle.
func (t *Trader) cancelOrder(ctx context.Context, orderID string) error {
	ack, err := t.exchange.CancelOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("trader: cancel order %s: %w", orderID, err)
	}
	if ack != orderID {
		return fmt.Errorf("trader: cancel of %s acknowledged %q: %w", orderID, ack, domain.ErrCancelMismatch)
	}
	t.logger.Info("order cancelled", slog.String("order_id", orderID))
	return nil
}

// fail marks the cycle failed, persists it, and passes the error through.
func (t *Trader) fail(ctx context.Context, cycle domain.Cycle, err error) (domain.Cycle, error) {
	cycle.Status = domain.CycleStatusFailed
	cycle.FailReason = err.Error()
	t.finish(ctx, &cycle)
	t.logger.Error("cycle failed",
		slog.String("cycle_id", cycle.ID),
		slog.String("error", err.Error()),
	)
	return cycle, err
}

func (t *Trader) finish(ctx context.Context, cycle *domain.Cycle) {
	now := time.Now().UTC()
	cycle.CompletedAt = &now
	t.journalUpdate(ctx, cycle)
}

// --------------------------------------------------------------------------
// Journal helpers. Failures are logged and swallowed.
// --------------------------------------------------------------------------

func (t *Trader) journalCreate(ctx context.Context, cycle *domain.Cycle) {
	if t.cycles == nil {
		return
	}
	if err := t.cycles.Create(ctx, *cycle); err != nil {
		t.logger.Warn("cycle journal create failed",
			slog.String("cycle_id", cycle.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (t *Trader) journalUpdate(ctx context.Context, cycle *domain.Cycle) {
	if t.cycles == nil {
		return
	}
	if err := t.cycles.Update(ctx, *cycle); err != nil {
		t.logger.Warn("cycle journal update failed",
			slog.String("cycle_id", cycle.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (t *Trader) journalOrder(ctx context.Context, cycleID string, order domain.Order) {
	if t.orders == nil {
		return
	}
	if err := t.orders.Create(ctx, cycleID, order); err != nil {
		t.logger.Warn("order journal create failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (t *Trader) journalOrderResult(ctx context.Context, order domain.Order) {
	if t.orders == nil {
		return
	}
	if err := t.orders.RecordResult(ctx, order); err != nil {
		t.logger.Warn("order journal result failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (t *Trader) journalTransfer(ctx context.Context, transfer domain.Transfer) {
	if t.transfers == nil {
		return
	}
	if err := t.transfers.Create(ctx, transfer); err != nil {
		t.logger.Warn("transfer journal create failed",
			slog.String("transfer_id", transfer.ID),
			slog.String("error", err.Error()),
		)
	}
}
