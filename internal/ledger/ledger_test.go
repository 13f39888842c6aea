package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func row(t *testing.T, b *Book, user, symbol, direction string) model.Position {
	t.Helper()
	for _, pos := range b.Positions(user) {
		if pos.Symbol == symbol && pos.Direction == direction {
			return pos
		}
	}
	t.Fatalf("no %s/%s row for %s", symbol, direction, user)
	return model.Position{}
}

func TestApply_WeightedAverage(t *testing.T) {
	b := NewBook()
	b.Apply("u1", "BTCUSDT", model.DirectionBuy, d(2), d(100))
	b.Apply("u1", "BTCUSDT", model.DirectionBuy, d(1), d(130))

	pos := row(t, b, "u1", "BTCUSDT", model.DirectionBuy)
	if !pos.Quantity.Equal(d(3)) {
		t.Errorf("quantity = %s, want 3", pos.Quantity)
	}
	// (2×100 + 1×130) / 3 = 110
	if !pos.AvgPrice.Equal(d(110)) {
		t.Errorf("avg price = %s, want 110", pos.AvgPrice)
	}
}

func TestApply_DirectionsNotNetted(t *testing.T) {
	b := NewBook()
	b.Apply("u1", "BTCUSDT", model.DirectionBuy, d(2), d(100))
	b.Apply("u1", "BTCUSDT", model.DirectionSell, d(2), d(105))

	if got := len(b.Positions("u1")); got != 2 {
		t.Fatalf("expected 2 independent rows, got %d", got)
	}
	buy := row(t, b, "u1", "BTCUSDT", model.DirectionBuy)
	sell := row(t, b, "u1", "BTCUSDT", model.DirectionSell)
	if !buy.Quantity.Equal(d(2)) || !sell.Quantity.Equal(d(2)) {
		t.Errorf("rows netted: buy=%s sell=%s", buy.Quantity, sell.Quantity)
	}
}

func TestApply_ZeroRowDeleted(t *testing.T) {
	b := NewBook()
	b.Apply("u1", "BTCUSDT", model.DirectionBuy, d(2), d(100))
	b.Apply("u1", "BTCUSDT", model.DirectionBuy, d(-2), d(120))

	if got := len(b.Positions("u1")); got != 0 {
		t.Errorf("zero row should be deleted, got %d rows", got)
	}
	if !b.AggregateNotional("u1").IsZero() {
		t.Errorf("aggregate notional should be zero after close")
	}
}

func TestApply_NonPositiveOpenIgnored(t *testing.T) {
	b := NewBook()
	b.Apply("u1", "BTCUSDT", model.DirectionBuy, d(-1), d(100))

	if got := len(b.Positions("u1")); got != 0 {
		t.Errorf("negative open should not create a row, got %d", got)
	}
}

func TestAggregateNotional_SumsAcrossRows(t *testing.T) {
	b := NewBook()
	b.Apply("u1", "BTCUSDT", model.DirectionBuy, d(2), d(100))
	b.Apply("u1", "ETHUSDT", model.DirectionSell, d(10), d(30))
	b.Apply("u2", "BTCUSDT", model.DirectionBuy, d(5), d(100))

	// 2×100 + 10×30 = 500
	if got := b.AggregateNotional("u1"); !got.Equal(d(500)) {
		t.Errorf("notional = %s, want 500", got)
	}
}

func TestUnrealizedPnL_SignFlipsForSell(t *testing.T) {
	buy := model.Position{Direction: model.DirectionBuy, Quantity: d(2), AvgPrice: d(100)}
	sell := model.Position{Direction: model.DirectionSell, Quantity: d(2), AvgPrice: d(100)}

	if got := UnrealizedPnL(buy, d(110)); !got.Equal(d(20)) {
		t.Errorf("buy pnl = %s, want 20", got)
	}
	if got := UnrealizedPnL(sell, d(110)); !got.Equal(d(-20)) {
		t.Errorf("sell pnl = %s, want -20", got)
	}
}
