package rate

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/ratebook/pkg/order"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

// mk builds an order with the given legs and USD prices.
func mk(typ order.Type, amount float64, a string, pa float64, b string, pb float64) order.Order {
	return order.Order{
		Type:   typ,
		Amount: amount,
		AssetA: order.Asset{Symbol: a, USDPrice: pa},
		AssetB: order.Asset{Symbol: b, USDPrice: pb},
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"int", 5, 5, false},
		{"digit string", "5", 5, false},
		{"zero", 0, 0, false},
		{"leading zeros", "007", 7, false},
		{"integral float", 5.0, 5, false},
		{"uint8", uint8(9), 9, false},
		{"json number", json.Number("12"), 12, false},
		{"decimal", decimal.NewFromInt(3), 3, false},
		{"fractional string", "5.5", 0, true},
		{"fractional float", 5.5, 0, true},
		{"negative int", -1, 0, true},
		{"negative string", "-1", 0, true},
		{"alphabetic", "abc", 0, true},
		{"empty string", "", 0, true},
		{"padded string", " 5", 0, true},
		{"nil", nil, 0, true},
		{"bool", true, 0, true},
		{"slice", []int{1}, 0, true},
		{"fractional json number", json.Number("1.5"), 0, true},
		{"overflow string", "99999999999999999999", 0, true},
		{"nan", math.NaN(), 0, true},
		{"inf", math.Inf(1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("NormalizeAmount(%v) err = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeAmount(%v) unexpected err: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeAmount(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompute_AskOnlyDepthWalk(t *testing.T) {
	// RateBtoA 15 (2 units) and 10 (5 units); lowest rate is walked first.
	book := []order.Order{
		mk(order.Ask, 2, "BTC", 30000, "ETH", 2000),
		mk(order.Ask, 5, "BTC", 20000, "ETH", 2000),
	}

	tests := []struct {
		name        string
		amount      any
		want        float64
		wantPartial bool
	}{
		{"zero", 0, 0, false},
		{"within first order", 3, 3 * 10 * (1 - Fee), false},
		{"spans both orders", 6, (5*10 + 1*15) * (1 - Fee), false},
		{"exact depth", "7", (5*10 + 2*15) * (1 - Fee), false},
		{"beyond depth", 100, (5*10 + 2*15) * (1 - Fee), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compute(book, tt.amount, "")
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if q.Strategy != DepthWalk {
				t.Errorf("strategy = %s, want %s", q.Strategy, DepthWalk)
			}
			if !approx(q.Receivable, tt.want) {
				t.Errorf("receivable = %v, want %v", q.Receivable, tt.want)
			}
			if q.Partial != tt.wantPartial {
				t.Errorf("partial = %v, want %v", q.Partial, tt.wantPartial)
			}
		})
	}
}

func TestCompute_BidOnlyDepthWalk(t *testing.T) {
	// RateAtoB 0.1 (4 units) and 0.2 (2 units); highest rate is walked first.
	book := []order.Order{
		mk(order.Bid, 4, "BTC", 30000, "ETH", 3000),
		mk(order.Bid, 2, "BTC", 30000, "ETH", 6000),
	}

	q, err := Compute(book, 3, "")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if q.Side != SideBid {
		t.Errorf("side = %q, want bid", q.Side)
	}
	want := (2*0.2 + 1*0.1) * (1 - Fee)
	if !approx(q.Receivable, want) {
		t.Errorf("receivable = %v, want %v", q.Receivable, want)
	}
}

func TestCompute_BeyondLiquidityIsBounded(t *testing.T) {
	book := []order.Order{
		mk(order.Bid, 4, "BTC", 30000, "ETH", 3000),
		mk(order.Bid, 2, "BTC", 30000, "ETH", 6000),
	}
	bound := (2*0.2 + 4*0.1) * (1 - Fee)

	for _, amount := range []int64{6, 7, 1000, 1 << 40} {
		q, err := Compute(book, amount, "")
		if err != nil {
			t.Fatalf("Compute(%d): %v", amount, err)
		}
		if q.Receivable > bound+eps {
			t.Errorf("Compute(%d) = %v exceeds liquidity bound %v", amount, q.Receivable, bound)
		}
		if !approx(q.Filled, 6) {
			t.Errorf("Compute(%d) filled = %v, want 6", amount, q.Filled)
		}
		if amount > 6 && (!q.Partial || !approx(q.Unfilled, float64(amount-6))) {
			t.Errorf("Compute(%d) partial=%v unfilled=%v", amount, q.Partial, q.Unfilled)
		}
	}
}

func TestCompute_MixedBookSideSelection(t *testing.T) {
	tests := []struct {
		name     string
		book     []order.Order
		wantSide Side
		want     float64
	}{
		{
			// bid 0.0667*0.999 < 1/(15*0.999): asks win
			name: "asks win",
			book: []order.Order{
				mk(order.Ask, 10, "BTC", 30000, "ETH", 2000),
				mk(order.Bid, 5, "BTC", 30000, "ETH", 2000),
			},
			wantSide: SideAsk,
			want:     3 * 15 * (1 - Fee),
		},
		{
			// bid 0.1*0.999 >= 1/(15*0.999): bids win
			name: "bids win",
			book: []order.Order{
				mk(order.Ask, 10, "BTC", 30000, "ETH", 2000),
				mk(order.Bid, 5, "BTC", 20000, "ETH", 2000),
			},
			wantSide: SideBid,
			want:     3 * 0.1 * (1 - Fee),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compute(tt.book, 3, "")
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if q.Side != tt.wantSide {
				t.Errorf("side = %q, want %q", q.Side, tt.wantSide)
			}
			if !approx(q.Receivable, tt.want) {
				t.Errorf("receivable = %v, want %v", q.Receivable, tt.want)
			}
		})
	}
}

func TestCompute_MixedBookIsDeterministic(t *testing.T) {
	book := []order.Order{
		mk(order.Ask, 10, "BTC", 30000, "ETH", 2000),
		mk(order.Bid, 5, "BTC", 30000, "ETH", 2000),
	}
	first, err := ComputeRate(book, 3, "")
	if err != nil {
		t.Fatalf("ComputeRate: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := ComputeRate(book, 3, "")
		if again != first {
			t.Fatalf("run %d = %v, want %v", i, again, first)
		}
	}
	if book[0].Amount != 10 || book[1].Amount != 5 {
		t.Errorf("order amounts changed: %v, %v", book[0].Amount, book[1].Amount)
	}
}

func TestCompute_EmptyAndLimitOnly(t *testing.T) {
	if got, err := ComputeRate(nil, 5, ""); err != nil || got != 0 {
		t.Errorf("empty book = %v, %v; want 0, nil", got, err)
	}

	limits := []order.Order{mk(order.Limit, 3, "BTC", 30000, "ETH", 2000)}
	q, err := Compute(limits, 5, "")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if q.Receivable != 0 || q.Side != SideNone {
		t.Errorf("limit-only book = %+v, want zero quote", q)
	}
}

func TestCompute_InvalidAmountWins(t *testing.T) {
	// Amount validation runs before the empty-book shortcut.
	if _, err := Compute(nil, "5.5", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestCompute_DirectionalIgnoresDepth(t *testing.T) {
	shallow := []order.Order{
		mk(order.Ask, 1, "BTC", 30000, "ETH", 2000),
		mk(order.Bid, 1, "BTC", 30000, "ETH", 2000),
	}
	deep := []order.Order{
		mk(order.Ask, 1000, "BTC", 30000, "ETH", 2000),
		mk(order.Bid, 5000, "BTC", 30000, "ETH", 2000),
	}

	a, err := Compute(shallow, 2, "BTC/ETH")
	if err != nil {
		t.Fatalf("Compute shallow: %v", err)
	}
	b, err := Compute(deep, 2, "BTC/ETH")
	if err != nil {
		t.Fatalf("Compute deep: %v", err)
	}

	if a.Strategy != BestPriceSingle || b.Strategy != BestPriceSingle {
		t.Fatalf("strategies = %s, %s; want %s", a.Strategy, b.Strategy, BestPriceSingle)
	}
	if a.Receivable != b.Receivable {
		t.Errorf("shallow %v != deep %v", a.Receivable, b.Receivable)
	}
	if want := 15 * (1 - Fee) * 2; !approx(a.Receivable, want) {
		t.Errorf("receivable = %v, want %v", a.Receivable, want)
	}
}

func TestCompute_DirectionalUsesBestPricePerSide(t *testing.T) {
	book := []order.Order{
		mk(order.Ask, 1, "BTC", 31000, "ETH", 2000),
		mk(order.Ask, 1, "ETH", 2100, "BTC", 29000), // FROM on leg B
		mk(order.Bid, 1, "BTC", 30000, "ETH", 1900),
		mk(order.Bid, 1, "SOL", 100, "ETH", 1800),
		mk(order.Limit, 1, "BTC", 1, "ETH", 1),
	}
	got, err := ComputeRate(book, 1, "BTC/ETH")
	if err != nil {
		t.Fatalf("ComputeRate: %v", err)
	}
	if want := 29000.0 / 1800.0 * (1 - Fee); !approx(got, want) {
		t.Errorf("rate = %v, want %v", got, want)
	}
}

func TestCompute_DirectionalMissingSideIsZero(t *testing.T) {
	asksOnly := []order.Order{mk(order.Ask, 1, "BTC", 30000, "ETH", 2000)}
	q, err := Compute(asksOnly, 1, "BTC/ETH")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if q.Strategy != BestPriceSingle || q.Receivable != 0 {
		t.Errorf("quote = %+v, want best-price-single with 0", q)
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		dir  string
		want Strategy
		from string
		to   string
	}{
		{"", DepthWalk, "", ""},
		{"BTCETH", DepthWalk, "", ""},
		{"BTC/", DepthWalk, "", ""},
		{"/ETH", DepthWalk, "", ""},
		{" / ", DepthWalk, "", ""},
		{"BTC/ETH", BestPriceSingle, "BTC", "ETH"},
		{" ADA / LTC ", BestPriceSingle, "ADA", "LTC"},
		{"A/B/C", BestPriceSingle, "A", "B"},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			s, d := SelectStrategy(tt.dir)
			if s != tt.want || d.From != tt.from || d.To != tt.to {
				t.Errorf("SelectStrategy(%q) = %s %+v, want %s %s/%s", tt.dir, s, d, tt.want, tt.from, tt.to)
			}
		})
	}
}

func TestFillMixed_OneSidedFallsThrough(t *testing.T) {
	asks := order.AnnotateAll([]order.Order{mk(order.Ask, 2, "BTC", 30000, "ETH", 2000)})

	f := FillMixed(asks, nil, 1)
	if f.Side != SideAsk || !approx(f.Receivable, 15*(1-Fee)) {
		t.Errorf("fill = %+v, want ask side 14.985", f)
	}

	if f := FillBids(nil, 3); f.Receivable != 0 || f.Side != SideNone {
		t.Errorf("empty bids fill = %+v, want zero", f)
	}
}

func TestFillAsks_DoesNotReorderInput(t *testing.T) {
	asks := order.AnnotateAll([]order.Order{
		mk(order.Ask, 1, "BTC", 30000, "ETH", 2000),
		mk(order.Ask, 1, "BTC", 20000, "ETH", 2000),
	})
	_ = FillAsks(asks, 1)
	if !approx(asks[0].RateBtoA, 15) {
		t.Errorf("input reordered: first RateBtoA = %v", asks[0].RateBtoA)
	}
}
