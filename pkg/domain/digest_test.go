package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHashTextIsDeterministic(t *testing.T) {
	a := HashText("lot L100")
	b := HashText("lot L100")
	if a != b {
		t.Fatalf("same input produced different digests: %s vs %s", a, b)
	}
	if a == HashText("lot L101") {
		t.Fatalf("different inputs produced identical digests")
	}
	if a.IsZero() {
		t.Fatalf("digest of non-empty input must not be zero")
	}
	if HashText("lot L100") != HashBytes([]byte("lot L100")) {
		t.Fatalf("HashText and HashBytes disagree on identical content")
	}
}

func TestDigestStringRoundTrip(t *testing.T) {
	d := HashText("round trip")
	s := d.String()
	if len(s) != DigestSize*2 || strings.ToLower(s) != s {
		t.Fatalf("expected lowercase hex of %d chars, got %q", DigestSize*2, s)
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != d {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, d)
	}
}

func TestParseDigestRejectsBadInput(t *testing.T) {
	if _, err := ParseDigest("zz"); err == nil {
		t.Fatalf("expected error for non-hex input")
	}
	if _, err := ParseDigest("abcd"); err == nil {
		t.Fatalf("expected error for short input")
	}
}

func TestDigestJSONEncoding(t *testing.T) {
	d := HashText("json")
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"`+d.String()+`"` {
		t.Fatalf("expected hex string encoding, got %s", raw)
	}
	var decoded Digest
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != d {
		t.Fatalf("json round trip mismatch")
	}
	if err := json.Unmarshal([]byte(`"nothex"`), &decoded); err == nil {
		t.Fatalf("expected error for invalid hex digest")
	}
}
