package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// scriptedSource replays a fixed sequence of uniforms, cycling at the end.
type scriptedSource struct {
	vals []float64
	i    int
}

func (s *scriptedSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

// zeroNoise yields Box-Muller draws of exactly zero: any u1 with u2 = 0.25
// gives cos(π/2) = 0.
func zeroNoise() Source {
	return &scriptedSource{vals: []float64{0.9, 0.25}}
}

// Monday, well after any boost cutoff used in these tests.
var liveDay = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestGen(src Source) *Generator {
	cutoff := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	return New(src, cutoff, 0.0015)
}

func TestRegister_Duplicate(t *testing.T) {
	g := newTestGen(zeroNoise())
	if err := g.Register("BTCUSDT", d(100), 0.02); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Register("BTCUSDT", d(100), 0.02); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestCurrent_StartsAtBase(t *testing.T) {
	g := newTestGen(zeroNoise())
	g.Register("BTCUSDT", d(68000), 0.02)

	price, err := g.Current("BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(68000)) {
		t.Errorf("expected base price 68000, got %s", price)
	}
}

func TestBackfill_AppendsDailyPoints(t *testing.T) {
	g := newTestGen(zeroNoise())
	g.Register("BTCUSDT", d(100), 0.02)

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 9)
	if err := g.Backfill("BTCUSDT", start, end); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, _ := g.History("BTCUSDT", time.Time{}, time.Time{})
	if len(history) != 10 {
		t.Fatalf("expected 10 daily points, got %d", len(history))
	}

	current, _ := g.Current("BTCUSDT")
	if !current.Equal(history[len(history)-1].Price) {
		t.Errorf("current price %s should equal last point %s",
			current, history[len(history)-1].Price)
	}
}

func TestBackfill_PolicyBoostBias(t *testing.T) {
	// With noise forced to zero, the only drift is the boost bias, which
	// applies strictly before the cutoff.
	g := newTestGen(zeroNoise())
	g.Register("PRE", d(100), 0.02)
	g.Register("POST", d(100), 0.02)

	// Mon–Fri before the cutoff: every day biased upward.
	g.Backfill("PRE", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC))
	// Mon–Fri after the cutoff: no bias, zero noise, flat.
	g.Backfill("POST", time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC))

	pre, _ := g.Current("PRE")
	post, _ := g.Current("POST")

	if !pre.GreaterThan(d(100)) {
		t.Errorf("pre-cutoff price should drift above base, got %s", pre)
	}
	if !post.Equal(d(100)) {
		t.Errorf("post-cutoff price should stay at base with zero noise, got %s", post)
	}
}

func TestBackfill_WeekendDamping(t *testing.T) {
	// Same single biased day, weekday vs Saturday: the Saturday delta is
	// dampened to 70%.
	g := newTestGen(zeroNoise())
	g.Register("WD", d(100), 0.02)
	g.Register("SAT", d(100), 0.02)

	weekday := time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC)  // Wednesday
	saturday := time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC) // Saturday
	g.Backfill("WD", weekday, weekday)
	g.Backfill("SAT", saturday, saturday)

	wd, _ := g.Current("WD")
	sat, _ := g.Current("SAT")

	if !wd.Equal(d(100.15)) {
		t.Errorf("expected weekday price 100.15 (+0.15%%), got %s", wd)
	}
	if !sat.Equal(d(100.105)) {
		t.Errorf("expected saturday price 100.105 (+0.105%%), got %s", sat)
	}
}

func TestBackfill_FloorClamp(t *testing.T) {
	// u2 = 0.5 gives cos(π) = -1: every draw is strongly negative with a
	// huge volatility, so the clamp must hold the floor.
	src := &scriptedSource{vals: []float64{0.1, 0.5}}
	g := newTestGen(src)
	g.Register("CRASH", d(100), 5.0)

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	g.Backfill("CRASH", start, start.AddDate(0, 0, 30))

	history, _ := g.History("CRASH", time.Time{}, time.Time{})
	for _, p := range history {
		if p.Price.LessThan(d(50)) {
			t.Fatalf("price %s fell below 50%% of base", p.Price)
		}
	}
}

func TestTick_TruncatesHistory(t *testing.T) {
	g := newTestGen(zeroNoise())
	g.Register("BTCUSDT", d(100), 0.02)

	now := liveDay
	for i := 0; i < 150; i++ {
		if _, err := g.Tick("BTCUSDT", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, _ := g.History("BTCUSDT", time.Time{}, time.Time{})
	if len(history) != 100 {
		t.Errorf("expected history truncated to 100 points, got %d", len(history))
	}
}

func TestTick_UnknownSymbol(t *testing.T) {
	g := newTestGen(zeroNoise())
	if _, err := g.Tick("NOPE", liveDay); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestHistory_RangeFilter(t *testing.T) {
	g := newTestGen(zeroNoise())
	g.Register("BTCUSDT", d(100), 0.02)

	for i := 0; i < 10; i++ {
		g.Tick("BTCUSDT", liveDay.Add(time.Duration(i)*time.Minute))
	}

	from := liveDay.Add(3 * time.Minute)
	to := liveDay.Add(6 * time.Minute)
	history, _ := g.History("BTCUSDT", from, to)
	if len(history) != 4 {
		t.Errorf("expected 4 points in [3m, 6m], got %d", len(history))
	}
}

func TestNormal_ZeroAtQuarterTurn(t *testing.T) {
	// cos(2π·0.25) = 0 regardless of u1, up to float rounding.
	z := normal(zeroNoise(), 1.0)
	if z > 1e-12 || z < -1e-12 {
		t.Errorf("expected a zero draw, got %g", z)
	}
}
