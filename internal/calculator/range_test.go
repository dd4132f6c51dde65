package calculator

import "testing"

func TestStochastic_FlatRange(t *testing.T) {
	n := 20
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = 10, 10, 10
	}
	res := Stochastic(highs, lows, closes, 14, 3)
	for i := 0; i < n; i++ {
		if i < 13 {
			if res.K[i].Valid {
				t.Errorf("index %d: expected null %%K during warm-up", i)
			}
		} else if !res.K[i].Valid || res.K[i].ValueOrZero() != 50 {
			t.Errorf("index %d: expected %%K 50 on flat range, got %v", i, res.K[i])
		}
		if i < 2 {
			if res.D[i].Valid {
				t.Errorf("index %d: expected null %%D", i)
			}
		} else if !res.D[i].Valid || res.D[i].ValueOrZero() != 50 {
			t.Errorf("index %d: expected %%D 50, got %v", i, res.D[i])
		}
	}
}

func TestStochastic_CloseAtHigh(t *testing.T) {
	n := 16
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = float64(i + 1)
		closes[i] = float64(i + 1)
	}
	res := Stochastic(highs, lows, closes, 14, 3)
	for i := 13; i < n; i++ {
		if !approx(res.K[i].ValueOrZero(), 100) {
			t.Errorf("index %d: expected %%K 100, got %v", i, res.K[i])
		}
	}
	// %D at 14 averages null(as 50), 100, 100.
	if !approx(res.D[14].ValueOrZero(), 250.0/3) {
		t.Errorf("expected %%D %.4f, got %v", 250.0/3, res.D[14])
	}
}
