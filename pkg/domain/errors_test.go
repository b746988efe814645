package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	notFound := NotFoundError{Kind: NotFoundProduct, Key: "42"}
	unauthorized := UnauthorizedError{Caller: "org-x", Reason: "not the custodian"}
	invalid := InvalidStateError{Reason: "product recalled"}

	if !IsNotFound(notFound) || IsNotFound(unauthorized) || IsNotFound(invalid) {
		t.Fatalf("IsNotFound misclassified")
	}
	if !IsUnauthorized(unauthorized) || IsUnauthorized(notFound) {
		t.Fatalf("IsUnauthorized misclassified")
	}
	if !IsInvalidState(invalid) || IsInvalidState(notFound) {
		t.Fatalf("IsInvalidState misclassified")
	}
	if IsNotFound(nil) || IsUnauthorized(nil) || IsInvalidState(nil) {
		t.Fatalf("predicates must reject nil")
	}
}

func TestErrorPredicatesUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("accept transfer: %w", NotFoundError{Kind: NotFoundTransfer, Key: "0/3"})
	if !IsNotFound(wrapped) {
		t.Fatalf("expected wrapped NotFoundError to be detected")
	}
	if IsNotFound(errors.New("plain")) {
		t.Fatalf("plain error misclassified as not found")
	}
}

func TestErrorMessages(t *testing.T) {
	if got := (NotFoundError{Kind: NotFoundCheckpoint, Key: "1/2"}).Error(); got != "checkpoint 1/2 not found" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (UnauthorizedError{Caller: "org-x", Reason: "no grant"}).Error(); got != "caller org-x unauthorized: no grant" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (InvalidStateError{Reason: "already recalled"}).Error(); got != "invalid state: already recalled" {
		t.Fatalf("unexpected message %q", got)
	}
}
