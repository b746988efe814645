package domain

import "testing"

func TestDeriveStatus(t *testing.T) {
	cases := map[string]ProductStatus{
		CheckpointDelivery:    StatusDelivered,
		CheckpointRetailSale:  StatusSold,
		CheckpointManufacture: StatusInTransit,
		CheckpointTransfer:    StatusInTransit,
		CheckpointRecall:      StatusInTransit,
		"customs-inspection":  StatusInTransit,
		"":                    StatusInTransit,
	}
	for checkpointType, want := range cases {
		if got := DeriveStatus(checkpointType); got != want {
			t.Errorf("DeriveStatus(%q) = %s, want %s", checkpointType, got, want)
		}
	}
}

func TestTransferStatusTerminal(t *testing.T) {
	if TransferPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
	for _, status := range []TransferStatus{TransferCompleted, TransferRejected, TransferCancelled} {
		if !status.Terminal() {
			t.Errorf("%s must be terminal", status)
		}
	}
}

func TestCertificationValidAt(t *testing.T) {
	cert := Certification{Status: CertificationValid, IssuedAt: 5, ExpiresAt: 10}
	if !cert.ValidAt(9) {
		t.Fatalf("expected valid before expiry")
	}
	// Expiry is strict: a certification is dead at its own expiry counter.
	if cert.ValidAt(10) {
		t.Fatalf("expected invalid at expiry")
	}
	cert.Status = CertificationRevoked
	if cert.ValidAt(6) {
		t.Fatalf("revoked certification must never be valid")
	}
}

func TestResultMergeAndHasBlocking(t *testing.T) {
	var r Result
	if r.HasBlocking() {
		t.Fatalf("empty result must not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "warn-rule", Severity: SeverityWarn}}})
	if r.HasBlocking() {
		t.Fatalf("warnings must not block")
	}
	r.Merge(Result{})
	r.Merge(Result{Violations: []Violation{{Rule: "block-rule", Severity: SeverityBlock}}})
	if !r.HasBlocking() {
		t.Fatalf("blocking violation not detected")
	}
	if len(r.Violations) != 2 {
		t.Fatalf("expected merged violations, got %d", len(r.Violations))
	}
}

func TestCounterClock(t *testing.T) {
	clock := NewCounterClock(7)
	if clock.Now() != 7 {
		t.Fatalf("expected start value 7, got %d", clock.Now())
	}
	if clock.Tick() != 8 {
		t.Fatalf("expected tick to return 8")
	}
	if clock.Now() != 8 {
		t.Fatalf("Now must observe without advancing, got %d", clock.Now())
	}
}
