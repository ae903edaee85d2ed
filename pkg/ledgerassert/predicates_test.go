package ledgerassert

import "testing"

func TestDebitsEqualCredits(t *testing.T) {
	cases := []struct {
		name           string
		debits, credits int64
		want           bool
	}{
		{"equal", 100, 100, true},
		{"zero", 0, 0, true},
		{"debits greater", 100, 99, false},
		{"credits greater", 99, 100, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DebitsEqualCredits(c.debits, c.credits); got != c.want {
				t.Errorf("got %v want %v", got, c.want)
			}
		})
	}
}

func TestNonZeroTotals(t *testing.T) {
	if NonZeroTotals(0, 0) {
		t.Error("zero totals should not pass")
	}

	if !NonZeroTotals(1, 1) {
		t.Error("positive totals should pass")
	}
}

func TestSplitsSumTo(t *testing.T) {
	if !SplitsSumTo([]int64{334, 333, 333}, 1000) {
		t.Error("expected splits to sum to total")
	}

	if SplitsSumTo([]int64{100, 100}, 201) {
		t.Error("expected mismatch to fail")
	}
}

func TestSplitSpreadAtMostOne(t *testing.T) {
	if !SplitSpreadAtMostOne([]int64{334, 333, 333}) {
		t.Error("expected spread of 1 to pass")
	}

	if SplitSpreadAtMostOne([]int64{400, 300, 300}) {
		t.Error("expected spread of 100 to fail")
	}
}

func TestPoolReconciles(t *testing.T) {
	if !PoolReconciles(100, 80, 20) {
		t.Error("expected reconciliation to hold")
	}

	if PoolReconciles(100, 80, 10) {
		t.Error("expected mismatch to fail")
	}
}
