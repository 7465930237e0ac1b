package order

import (
	"math"
	"testing"
)

func btcEth(typ Type, amount float64) Order {
	return Order{
		Type:   typ,
		Amount: amount,
		AssetA: Asset{Symbol: "BTC", USDPrice: 30000},
		AssetB: Asset{Symbol: "ETH", USDPrice: 2000},
	}
}

func TestAnnotate_Rates(t *testing.T) {
	a := Annotate(btcEth(Ask, 10))

	if a.SymbolA != "BTC" || a.SymbolB != "ETH" {
		t.Fatalf("symbols = %s/%s, want BTC/ETH", a.SymbolA, a.SymbolB)
	}
	if want := 2000.0 / 30000.0; a.RateAtoB != want {
		t.Errorf("RateAtoB = %v, want %v", a.RateAtoB, want)
	}
	if want := 15.0; math.Abs(a.RateBtoA-want) > 1e-9 {
		t.Errorf("RateBtoA = %v, want %v", a.RateBtoA, want)
	}
	if p := a.RateAtoB * a.RateBtoA; math.Abs(p-1) > 1e-12 {
		t.Errorf("RateAtoB*RateBtoA = %v, want ~1", p)
	}
}

func TestAnnotateAll_PreservesOrder(t *testing.T) {
	in := []Order{btcEth(Ask, 1), btcEth(Bid, 2), btcEth(Limit, 3)}
	out := AnnotateAll(in)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for i := range in {
		if out[i].Type != in[i].Type || out[i].Amount != in[i].Amount {
			t.Errorf("out[%d] = %+v, want type %s amount %v", i, out[i], in[i].Type, in[i].Amount)
		}
	}
}

func TestOrder_SymbolHelpers(t *testing.T) {
	o := btcEth(Ask, 1)

	if !o.Touches("BTC") || !o.Touches("ETH") || o.Touches("SOL") {
		t.Error("Touches mismatch")
	}
	if got := o.PriceOf("ETH"); got != 2000 {
		t.Errorf("PriceOf(ETH) = %v, want 2000", got)
	}
	if !o.Connects("BTC", "ETH") || !o.Connects("ETH", "BTC") {
		t.Error("Connects should match both orientations")
	}
	if o.Connects("BTC", "BTC") || o.Connects("ETH", "SOL") {
		t.Error("Connects matched an unrelated pair")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"ask", Ask, false},
		{"BID", Bid, false},
		{" limit ", Limit, false},
		{"market", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
