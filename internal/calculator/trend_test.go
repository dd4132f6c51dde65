package calculator

import "testing"

func TestMACD_ConstantSeriesIsZero(t *testing.T) {
	series := make([]float64, 40)
	for i := range series {
		series[i] = 10
	}
	res := MACD(series, 12, 26, 9)
	for i := range series {
		if res.MACD[i] != 0 || res.Signal[i] != 0 || res.Hist[i] != 0 {
			t.Fatalf("index %d: expected zeros, got macd=%v signal=%v hist=%v",
				i, res.MACD[i], res.Signal[i], res.Hist[i])
		}
	}
}

func TestMACD_HistIsLineMinusSignal(t *testing.T) {
	series := []float64{1, 3, 2, 5, 4, 6, 8, 7, 9, 12, 10, 11, 14, 13, 15}
	res := MACD(series, 3, 6, 4)
	for i := range series {
		if !approx(res.Hist[i], res.MACD[i]-res.Signal[i]) {
			t.Errorf("index %d: hist mismatch", i)
		}
	}
}

func TestADX_FlatBarsHaveNullDI(t *testing.T) {
	n := 20
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = 10, 10, 10
	}
	res := ADX(highs, lows, closes, 14)
	for i := 0; i < n; i++ {
		if res.DIPlus[i].Valid || res.DIMinus[i].Valid {
			t.Errorf("index %d: expected null DI when ATR is 0", i)
		}
		if res.ADX[i] != 0 {
			t.Errorf("index %d: expected ADX 0, got %.4f", i, res.ADX[i])
		}
	}
}

func TestADX_Uptrend(t *testing.T) {
	n := 40
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)
		highs[i], lows[i], closes[i] = base+1, base-1, base+0.5
	}
	res := ADX(highs, lows, closes, 14)
	last := n - 1
	if !res.DIPlus[last].Valid || !res.DIMinus[last].Valid {
		t.Fatal("expected DI values")
	}
	if res.DIPlus[last].ValueOrZero() <= res.DIMinus[last].ValueOrZero() {
		t.Errorf("expected +DI > -DI in uptrend, got %.2f vs %.2f", res.DIPlus[last].ValueOrZero(), res.DIMinus[last].ValueOrZero())
	}
	if res.ADX[last] <= 0 || res.ADX[last] > 100 {
		t.Errorf("expected ADX in (0,100], got %.2f", res.ADX[last])
	}
}
