package statemachine

import (
	"strings"
	"testing"

	"foodhub/models"
)

func TestOrderLifecycleFromPending(t *testing.T) {
	got := Order.ValidTransitionsFrom(string(models.OrderPending))
	want := []string{"ACCEPTED", "REJECTED", "CANCELLED", "COMPLETED"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ValidTransitionsFrom(PENDING) = %v, want %v", got, want)
	}
	if nexts := Order.ValidTransitionsFrom(string(models.OrderRejected)); len(nexts) != 0 {
		t.Errorf("REJECTED should be terminal, got %v", nexts)
	}
}

func TestPaymentTransitions(t *testing.T) {
	tests := []struct {
		from, to models.PaymentStatus
		actor    string
		ok       bool
	}{
		{models.PaymentPending, models.PaymentSucceeded, ActorGateway, true},
		{models.PaymentPending, models.PaymentFailed, ActorGateway, true},
		{models.PaymentSucceeded, models.PaymentRefunded, ActorSystem, true},
		{models.PaymentSucceeded, models.PaymentFailed, ActorGateway, false},
		{models.PaymentFailed, models.PaymentSucceeded, ActorGateway, false},
		{models.PaymentPending, models.PaymentSucceeded, ActorCustomer, false},
	}
	for _, tt := range tests {
		err := Payment.CanTransition(string(tt.from), string(tt.to), tt.actor)
		if (err == nil) != tt.ok {
			t.Errorf("%s -> %s by %s: err = %v, want ok=%v", tt.from, tt.to, tt.actor, err, tt.ok)
		}
	}
}

func TestCanTransitionErrorDescribesOptions(t *testing.T) {
	err := Payment.CanTransition("FAILED", "SUCCEEDED", ActorGateway)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "none (terminal state)") {
		t.Errorf("error %q should mention terminal state", err)
	}
	err = Payment.CanTransition("PENDING", "REFUNDED", ActorSystem)
	if err == nil || !strings.Contains(err.Error(), "SUCCEEDED, FAILED") {
		t.Errorf("error %v should list SUCCEEDED, FAILED", err)
	}
}

func TestTransitionsReturnsCopy(t *testing.T) {
	ts := Payment.Transitions()
	ts[0].To = "BOGUS"
	if Payment.Transitions()[0].To == "BOGUS" {
		t.Error("Transitions must not expose the internal table")
	}
}
