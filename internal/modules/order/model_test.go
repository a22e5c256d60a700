// README: Order state machine transition-table tests.
package order

import "testing"

func TestCanTransition_HappyPath(t *testing.T) {
	steps := []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery, StatusDelivered}
	for i := 0; i < len(steps)-1; i++ {
		if !CanTransition(steps[i], steps[i+1]) {
			t.Errorf("expected %s -> %s to be legal", steps[i], steps[i+1])
		}
	}
}

func TestCanTransition_RejectsSkipsAndBackward(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{StatusPending, StatusReady},
		{StatusPending, StatusDelivered},
		{StatusConfirmed, StatusOutForDelivery},
		{StatusConfirmed, StatusPending},
		{StatusReady, StatusConfirmed},
		{StatusDelivered, StatusOutForDelivery},
		{StatusPending, StatusPending},
	}
	for _, tt := range tests {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("expected %s -> %s to be rejected", tt.from, tt.to)
		}
	}
}

func TestCanTransition_Cancellation(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery} {
		if !CanTransition(from, StatusCancelled) {
			t.Errorf("expected %s -> cancelled to be legal", from)
		}
	}
	for _, from := range []Status{StatusDelivered, StatusCancelled} {
		if CanTransition(from, StatusCancelled) {
			t.Errorf("expected %s -> cancelled to be rejected", from)
		}
	}
}

func TestCanTransition_NothingLeavesTerminal(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery, StatusDelivered, StatusCancelled}
	for _, terminal := range []Status{StatusDelivered, StatusCancelled} {
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Errorf("expected %s -> %s to be rejected", terminal, to)
			}
		}
	}
}
