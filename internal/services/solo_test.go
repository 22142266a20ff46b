package services

import "testing"

func TestEstimateSoloPayoff(t *testing.T) {
	cases := []struct {
		name          string
		balance       float64
		apr           float64
		minimum       float64
		wantConverges bool
		wantMonths    int
	}{
		{"paid off", 0, 24, 0, true, 0},
		{"zero apr two months", 100, 0, 50, true, 2},
		{"single month with interest", 1000, 24, 1020, true, 1},
		// Minimum below monthly interest: flagged without running the
		// full 600-month loop.
		{"never converges", 5000, 29.99, 10, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateSoloPayoff(debt("d", tc.balance, tc.apr, tc.minimum))
			if got.Converges != tc.wantConverges {
				t.Fatalf("Converges = %v, want %v", got.Converges, tc.wantConverges)
			}
			if got.Converges && got.Months != tc.wantMonths {
				t.Fatalf("Months = %d, want %d", got.Months, tc.wantMonths)
			}
		})
	}
}

func TestEstimateSoloPayoffShortCircuits(t *testing.T) {
	// A payment exactly equal to the interest holds the balance flat
	// forever; the estimator gives up shortly after the first year rather
	// than amortizing out to the ceiling.
	d := debt("flat", 1200, 10, 10) // interest = 1200 * 10/100/12 = 10
	got := EstimateSoloPayoff(d)
	if got.Converges {
		t.Fatalf("expected non-convergence, got %d months", got.Months)
	}
}

func TestEstimateSoloPayoffBarelyConverges(t *testing.T) {
	// A payment just above the interest eventually retires the debt, even
	// though it takes years.
	d := debt("slow", 1200, 10, 12)
	got := EstimateSoloPayoff(d)
	if !got.Converges {
		t.Fatal("expected convergence")
	}
	if got.Months <= soloNonConvergenceGrace || got.Months > MaxPayoffMonths {
		t.Fatalf("Months = %d, want a long but bounded horizon", got.Months)
	}
}
