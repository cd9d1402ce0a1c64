package repository

import "testing"

func TestTimeframeWeights(t *testing.T) {
	tests := []struct {
		tf     Timeframe
		weight float64
	}{
		{TF15m, 1.0},
		{TF1h, 1.2},
		{TF4h, 1.5},
		{TF1d, 2.0},
		{Timeframe("5m"), 1.0},
	}
	for _, tc := range tests {
		if got := tc.tf.Weight(); got != tc.weight {
			t.Fatalf("%s: weight %v, want %v", tc.tf, got, tc.weight)
		}
	}
}

func TestNormalizeTimeframe(t *testing.T) {
	if NormalizeTimeframe("1H") != TF1h {
		t.Fatalf("expected 1H to normalize")
	}
	if NormalizeTimeframe("") != DefaultTimeframe() {
		t.Fatalf("expected default for empty input")
	}
	if !IsValidTimeframe(TF4h) {
		t.Fatalf("expected 4h valid")
	}
	if IsValidTimeframe(Timeframe("3w")) {
		t.Fatalf("expected 3w invalid")
	}
}
