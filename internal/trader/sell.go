package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// SellPosition closes the held position with a single limit sell priced
// slightly below market so it crosses the book. On a fill the position
// record is cleared, profit is computed against the acquisition cost, and a
// share of any positive profit is transferred from the trade profile to the
// deposit profile. Closing at a loss is reported as an error so the
// operator sees it, but the position is still released.
//
// If the order does not settle within the poll budget it is cancelled
// exactly once and the phase ends without error; the position carries over
// to the next cycle.
func (t *Trader) SellPosition(ctx context.Context, cycle *domain.Cycle, size, currentPrice float64) error {
	sellPrice := currentPrice * (1 - t.cfg.PriceDelta)

	if err := t.checkOrderBudget(ctx); err != nil {
		return err
	}

	order, err := t.exchange.PlaceOrder(ctx, domain.OrderRequest{
		Side:      domain.OrderSideSell,
		Price:     sellPrice,
		Size:      size,
		ProductID: t.cfg.ProductID,
		ClientOID: uuid.New().String(),
	})
	if err != nil {
		return fmt.Errorf("trader: place sell order: %w", err)
	}

	t.logger.Info("sell order placed",
		slog.String("order_id", order.ID),
		slog.Float64("price", sellPrice),
		slog.Float64("size", size),
	)

	cycle.Status = domain.CycleStatusSelling
	cycle.SellOrderID = order.ID
	cycle.SellPrice = sellPrice
	t.journalOrder(ctx, cycle.ID, order)
	t.journalUpdate(ctx, cycle)

	final, outcome, err := t.pollOrder(ctx, order.ID, func() bool { return t.position.Exists })
	if err != nil {
		return fmt.Errorf("trader: poll sell order: %w", err)
	}

	switch outcome {
	case pollFilled:
		acquiredCost := t.position.AcquiredCost
		t.position.Reset()
		t.heldSize = 0

		proceeds := final.ExecutedValue - final.FillFees
		profit := proceeds - acquiredCost

		cycle.Proceeds = proceeds
		cycle.Profit = profit
		t.journalOrderResult(ctx, final)
		t.journalUpdate(ctx, cycle)

		t.logger.Info("position closed",
			slog.String("order_id", final.ID),
			slog.Float64("proceeds", proceeds),
			slog.Float64("profit", profit),
		)

		if profit <= 0 {
			return fmt.Errorf("trader: position closed with profit %.8f: %w",
				profit, domain.ErrUnprofitableClose)
		}
		return t.splitProfit(ctx, cycle, profit)

	case pollClosed:
		t.journalOrderResult(ctx, final)
		return fmt.Errorf("trader: sell order %s done with reason %q: %w",
			final.ID, final.DoneReason, domain.ErrUnexpectedFillReason)

	default:
		if err := t.cancelOrder(ctx, order.ID); err != nil {
			return err
		}
		t.logger.Info("sell order timed out, position carries over",
			slog.String("order_id", order.ID))
		return nil
	}
}

// splitProfit moves the configured share of a positive profit into the
// deposit profile.
func (t *Trader) splitProfit(ctx context.Context, cycle *domain.Cycle, profit float64) error {
	amount := profit * t.cfg.ProfitSplit

	transfer, err := t.exchange.ProfileTransfer(ctx,
		t.cfg.TradeProfileID, t.cfg.DepositProfileID, t.cfg.SplitCurrency, amount)
	if err != nil {
		return fmt.Errorf("trader: profit transfer: %w", err)
	}
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	transfer.CycleID = cycle.ID
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = time.Now().UTC()
	}
	t.journalTransfer(ctx, transfer)

	cycle.SplitAmount = amount
	t.journalUpdate(ctx, cycle)

	t.logger.Info("profit split transferred",
		slog.Float64("profit", profit),
		slog.Float64("amount", amount),
		slog.String("currency", t.cfg.SplitCurrency),
	)
	return nil
}
