package trader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

type fakeTransfer struct {
	from, to, currency string
	amount             float64
}

// fakeExchange scripts exchange behavior per test through optional hooks
// and records every call for assertions.
type fakeExchange struct {
	balanceFn  func() (float64, error)
	tickerFn   func() (float64, error)
	placeFn    func(req domain.OrderRequest) (domain.Order, error)
	getFn      func(orderID string, call int) (domain.Order, error)
	cancelFn   func(orderID string) (string, error)
	transferFn func(from, to, currency string, amount float64) (domain.Transfer, error)

	placed    []domain.OrderRequest
	getCalls  int
	cancels   []string
	transfers []fakeTransfer
}

func (f *fakeExchange) GetAvailableBalance(_ context.Context, _ string) (float64, error) {
	if f.balanceFn != nil {
		return f.balanceFn()
	}
	return 1000.0, nil
}

func (f *fakeExchange) GetTicker(_ context.Context, _ string) (float64, error) {
	if f.tickerFn != nil {
		return f.tickerFn()
	}
	return 100.0, nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, req domain.OrderRequest) (domain.Order, error) {
	f.placed = append(f.placed, req)
	if f.placeFn != nil {
		return f.placeFn(req)
	}
	return domain.Order{
		ID:        fmt.Sprintf("order-%d", len(f.placed)),
		ProductID: req.ProductID,
		Side:      req.Side,
		Price:     req.Price,
		Size:      req.Size,
		Status:    domain.OrderStatusPending,
	}, nil
}

func (f *fakeExchange) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	f.getCalls++
	if f.getFn != nil {
		return f.getFn(orderID, f.getCalls)
	}
	return domain.Order{ID: orderID, Status: domain.OrderStatusOpen}, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, orderID string) (string, error) {
	f.cancels = append(f.cancels, orderID)
	if f.cancelFn != nil {
		return f.cancelFn(orderID)
	}
	return orderID, nil
}

func (f *fakeExchange) ProfileTransfer(_ context.Context, from, to, currency string, amount float64) (domain.Transfer, error) {
	f.transfers = append(f.transfers, fakeTransfer{from: from, to: to, currency: currency, amount: amount})
	if f.transferFn != nil {
		return f.transferFn(from, to, currency, amount)
	}
	return domain.Transfer{ID: "transfer-1", From: from, To: to, Currency: currency, Amount: amount}, nil
}

func filledOrder(orderID string, side domain.OrderSide, executedValue, fillFees, filledSize float64) domain.Order {
	return domain.Order{
		ID:            orderID,
		Side:          side,
		Status:        domain.OrderStatusDone,
		DoneReason:    domain.DoneReasonFilled,
		ExecutedValue: executedValue,
		FillFees:      fillFees,
		FilledSize:    filledSize,
	}
}

func newTestTrader(fake *fakeExchange) *Trader {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(fake, Config{
		ProductID:        "BTC-USD",
		TakerFeeRate:     0.005,
		PriceDelta:       0.001,
		ProfitSplit:      0.4,
		TradeProfileID:   "trade-profile",
		DepositProfileID: "deposit-profile",
		PollAttempts:     10,
		PollInterval:     time.Millisecond,
	}, logger)
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestBuyPositionSizing(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		size := fake.placed[0].Size
		return filledOrder(orderID, domain.OrderSideBuy, 995.0, 4.975, size), nil
	}
	tr := newTestTrader(fake)

	var cycle domain.Cycle
	if err := tr.BuyPosition(context.Background(), &cycle, 1000.0, 100.0); err != nil {
		t.Fatalf("BuyPosition: %v", err)
	}

	if len(fake.placed) != 1 {
		t.Fatalf("placed %d orders, want 1", len(fake.placed))
	}
	req := fake.placed[0]
	if req.Side != domain.OrderSideBuy {
		t.Errorf("side = %q, want buy", req.Side)
	}
	if !approx(req.Price, 100.10) {
		t.Errorf("buy price = %v, want 100.10", req.Price)
	}
	wantSize := 995.0 / 100.10
	if !approx(req.Size, wantSize) {
		t.Errorf("size = %v, want %v", req.Size, wantSize)
	}
	if req.ClientOID == "" {
		t.Error("client oid not set")
	}
}

func TestBuyPositionFillOpensPosition(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		return filledOrder(orderID, domain.OrderSideBuy, 995.0, 4.975, 9.94005994), nil
	}
	tr := newTestTrader(fake)

	var cycle domain.Cycle
	if err := tr.BuyPosition(context.Background(), &cycle, 1000.0, 100.0); err != nil {
		t.Fatalf("BuyPosition: %v", err)
	}

	pos := tr.Position()
	if !pos.Exists {
		t.Fatal("position not opened after fill")
	}
	if !approx(pos.AcquiredCost, 999.975) {
		t.Errorf("acquired cost = %v, want 999.975", pos.AcquiredCost)
	}
	wantPrice := 995.0 / 9.94005994
	if !approx(pos.AcquiredPrice, wantPrice) {
		t.Errorf("acquired price = %v, want %v", pos.AcquiredPrice, wantPrice)
	}
	if cycle.Status != domain.CycleStatusHolding {
		t.Errorf("cycle status = %q, want holding", cycle.Status)
	}
}

func TestBuyPositionTimeoutCancelsOnce(t *testing.T) {
	fake := &fakeExchange{}
	tr := newTestTrader(fake)

	var cycle domain.Cycle
	if err := tr.BuyPosition(context.Background(), &cycle, 1000.0, 100.0); err != nil {
		t.Fatalf("BuyPosition: %v", err)
	}

	if fake.getCalls != 10 {
		t.Errorf("status checks = %d, want 10", fake.getCalls)
	}
	if len(fake.cancels) != 1 {
		t.Fatalf("cancels = %d, want exactly 1", len(fake.cancels))
	}
	if fake.cancels[0] != "order-1" {
		t.Errorf("cancelled %q, want order-1", fake.cancels[0])
	}
	if tr.Position().Exists {
		t.Error("position opened despite timeout")
	}
}

func TestBuyPositionCancelMismatch(t *testing.T) {
	fake := &fakeExchange{
		cancelFn: func(string) (string, error) { return "some-other-id", nil },
	}
	tr := newTestTrader(fake)

	var cycle domain.Cycle
	err := tr.BuyPosition(context.Background(), &cycle, 1000.0, 100.0)
	if !errors.Is(err, domain.ErrCancelMismatch) {
		t.Fatalf("error = %v, want ErrCancelMismatch", err)
	}
	if len(fake.cancels) != 1 {
		t.Errorf("cancels = %d, want 1 (no retry after mismatch)", len(fake.cancels))
	}
}

func TestBuyPositionDoneWithoutFill(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		return domain.Order{
			ID:         orderID,
			Status:     domain.OrderStatusDone,
			DoneReason: domain.DoneReasonCancelled,
		}, nil
	}
	tr := newTestTrader(fake)

	var cycle domain.Cycle
	err := tr.BuyPosition(context.Background(), &cycle, 1000.0, 100.0)
	if !errors.Is(err, domain.ErrUnexpectedFillReason) {
		t.Fatalf("error = %v, want ErrUnexpectedFillReason", err)
	}
	if tr.Position().Exists {
		t.Error("position opened from an unfilled order")
	}
	if len(fake.cancels) != 0 {
		t.Errorf("cancels = %d, want 0 for an already settled order", len(fake.cancels))
	}
}

func TestSellPositionProfitSplit(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		return filledOrder(orderID, domain.OrderSideSell, 1010.0, 1.0, 9.94005994), nil
	}
	tr := newTestTrader(fake)
	tr.position.Exists = true
	tr.position.AcquiredPrice = 100.10
	tr.position.AcquiredCost = 1000.0
	tr.heldSize = 9.94005994

	cycle := domain.Cycle{ID: "cycle-1"}
	if err := tr.SellPosition(context.Background(), &cycle, tr.heldSize, 100.0); err != nil {
		t.Fatalf("SellPosition: %v", err)
	}

	req := fake.placed[0]
	if req.Side != domain.OrderSideSell {
		t.Errorf("side = %q, want sell", req.Side)
	}
	if !approx(req.Price, 99.90) {
		t.Errorf("sell price = %v, want 99.90", req.Price)
	}

	if tr.Position().Exists {
		t.Error("position still held after fill")
	}
	if !approx(cycle.Profit, 9.0) {
		t.Errorf("profit = %v, want 9.0", cycle.Profit)
	}

	if len(fake.transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(fake.transfers))
	}
	tx := fake.transfers[0]
	if !approx(tx.amount, 3.60) {
		t.Errorf("transfer amount = %v, want 3.60", tx.amount)
	}
	if tx.from != "trade-profile" || tx.to != "deposit-profile" {
		t.Errorf("transfer %s -> %s, want trade-profile -> deposit-profile", tx.from, tx.to)
	}
	if tx.currency != "USD" {
		t.Errorf("transfer currency = %q, want USD", tx.currency)
	}
}

func TestSellPositionUnprofitable(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		return filledOrder(orderID, domain.OrderSideSell, 999.0, 1.0, 9.94005994), nil
	}
	tr := newTestTrader(fake)
	tr.position.Exists = true
	tr.position.AcquiredCost = 1000.0
	tr.heldSize = 9.94005994

	cycle := domain.Cycle{ID: "cycle-1"}
	err := tr.SellPosition(context.Background(), &cycle, tr.heldSize, 100.0)
	if !errors.Is(err, domain.ErrUnprofitableClose) {
		t.Fatalf("error = %v, want ErrUnprofitableClose", err)
	}
	if tr.Position().Exists {
		t.Error("position not released after losing close")
	}
	if len(fake.transfers) != 0 {
		t.Errorf("transfers = %d, want 0 on a loss", len(fake.transfers))
	}
}

func TestSellPositionDoneWithoutFill(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		return domain.Order{
			ID:         orderID,
			Status:     domain.OrderStatusDone,
			DoneReason: domain.DoneReasonCancelled,
		}, nil
	}
	tr := newTestTrader(fake)
	tr.position.Exists = true
	tr.position.AcquiredCost = 1000.0
	tr.heldSize = 9.94005994

	cycle := domain.Cycle{ID: "cycle-1"}
	err := tr.SellPosition(context.Background(), &cycle, tr.heldSize, 100.0)
	if !errors.Is(err, domain.ErrUnexpectedFillReason) {
		t.Fatalf("error = %v, want ErrUnexpectedFillReason", err)
	}
	if len(fake.cancels) != 0 {
		t.Errorf("cancels = %d, want 0 for an already settled order", len(fake.cancels))
	}
	if len(fake.transfers) != 0 {
		t.Errorf("transfers = %d, want 0", len(fake.transfers))
	}
}

func TestSellPositionCancelMismatch(t *testing.T) {
	fake := &fakeExchange{
		cancelFn: func(string) (string, error) { return "some-other-id", nil },
	}
	tr := newTestTrader(fake)
	tr.position.Exists = true
	tr.position.AcquiredCost = 1000.0
	tr.heldSize = 9.94005994

	cycle := domain.Cycle{ID: "cycle-1"}
	err := tr.SellPosition(context.Background(), &cycle, tr.heldSize, 100.0)
	if !errors.Is(err, domain.ErrCancelMismatch) {
		t.Fatalf("error = %v, want ErrCancelMismatch", err)
	}
	if len(fake.cancels) != 1 {
		t.Errorf("cancels = %d, want 1 (no retry after mismatch)", len(fake.cancels))
	}
	if !tr.Position().Exists {
		t.Error("position dropped despite unresolved sell")
	}
	if tr.heldSize != 9.94005994 {
		t.Errorf("heldSize = %v, want unchanged 9.94005994", tr.heldSize)
	}
}

func TestSellPositionTimeoutKeepsPosition(t *testing.T) {
	fake := &fakeExchange{}
	tr := newTestTrader(fake)
	tr.position.Exists = true
	tr.position.AcquiredCost = 1000.0
	tr.heldSize = 9.94005994

	cycle := domain.Cycle{ID: "cycle-1"}
	if err := tr.SellPosition(context.Background(), &cycle, tr.heldSize, 100.0); err != nil {
		t.Fatalf("SellPosition: %v", err)
	}

	if fake.getCalls != 10 {
		t.Errorf("status checks = %d, want 10", fake.getCalls)
	}
	if len(fake.cancels) != 1 {
		t.Errorf("cancels = %d, want exactly 1", len(fake.cancels))
	}
	if !tr.Position().Exists {
		t.Error("position dropped despite unfilled sell")
	}
	if len(fake.transfers) != 0 {
		t.Errorf("transfers = %d, want 0", len(fake.transfers))
	}
}

func TestRunCycleCompletes(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		switch orderID {
		case "order-1":
			return filledOrder(orderID, domain.OrderSideBuy, 995.0, 4.975, 9.94005994), nil
		default:
			return filledOrder(orderID, domain.OrderSideSell, 1010.0, 1.0, 9.94005994), nil
		}
	}
	tr := newTestTrader(fake)

	cycle, err := tr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if cycle.Status != domain.CycleStatusCompleted {
		t.Errorf("cycle status = %q, want completed", cycle.Status)
	}
	if len(fake.placed) != 2 {
		t.Fatalf("placed %d orders, want 2", len(fake.placed))
	}
	if fake.placed[0].Side != domain.OrderSideBuy || fake.placed[1].Side != domain.OrderSideSell {
		t.Errorf("order sides = %q, %q, want buy then sell", fake.placed[0].Side, fake.placed[1].Side)
	}
	if tr.Position().Exists {
		t.Error("position still held after completed cycle")
	}
	wantProfit := (1010.0 - 1.0) - 999.975
	if !approx(cycle.Profit, wantProfit) {
		t.Errorf("profit = %v, want %v", cycle.Profit, wantProfit)
	}
	if len(fake.transfers) != 1 || !approx(fake.transfers[0].amount, wantProfit*0.4) {
		t.Errorf("transfers = %+v, want one of %v", fake.transfers, wantProfit*0.4)
	}
	if cycle.CompletedAt == nil {
		t.Error("completed cycle has no completion time")
	}
}

func TestRunCycleAbandonedOnBuyTimeout(t *testing.T) {
	fake := &fakeExchange{}
	tr := newTestTrader(fake)

	cycle, err := tr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if cycle.Status != domain.CycleStatusAbandoned {
		t.Errorf("cycle status = %q, want abandoned", cycle.Status)
	}
	if len(fake.placed) != 1 {
		t.Errorf("placed %d orders, want only the buy", len(fake.placed))
	}
	if tr.Position().Exists {
		t.Error("position exists after abandoned buy")
	}
}

func TestRunCycleResumesHeldPosition(t *testing.T) {
	fake := &fakeExchange{}
	fake.getFn = func(orderID string, _ int) (domain.Order, error) {
		return filledOrder(orderID, domain.OrderSideSell, 1010.0, 1.0, 9.94005994), nil
	}
	tr := newTestTrader(fake)
	tr.position.Exists = true
	tr.position.AcquiredPrice = 100.10
	tr.position.AcquiredCost = 1000.0
	tr.heldSize = 9.94005994

	cycle, err := tr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if cycle.Status != domain.CycleStatusCompleted {
		t.Errorf("cycle status = %q, want completed", cycle.Status)
	}
	if len(fake.placed) != 1 {
		t.Fatalf("placed %d orders, want only the sell", len(fake.placed))
	}
	if fake.placed[0].Side != domain.OrderSideSell {
		t.Errorf("side = %q, want sell", fake.placed[0].Side)
	}
}

func TestRunCycleFailsOnBalanceError(t *testing.T) {
	fake := &fakeExchange{
		balanceFn: func() (float64, error) { return 0, domain.ErrNotFound },
	}
	tr := newTestTrader(fake)

	cycle, err := tr.RunCycle(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if cycle.Status != domain.CycleStatusFailed {
		t.Errorf("cycle status = %q, want failed", cycle.Status)
	}
	if cycle.FailReason == "" {
		t.Error("failed cycle has no fail reason")
	}
	if len(fake.placed) != 0 {
		t.Errorf("placed %d orders, want 0", len(fake.placed))
	}
}

func TestPollStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeExchange{}
	tr := newTestTrader(fake)

	var cycle domain.Cycle
	err := tr.BuyPosition(ctx, &cycle, 1000.0, 100.0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fake.getCalls != 0 {
		t.Errorf("status checks = %d, want 0 after cancellation", fake.getCalls)
	}
}
