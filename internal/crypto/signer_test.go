package crypto

import (
	"errors"
	"testing"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// base64 of "My super secret key".
const testSecret = "TXkgc3VwZXIgc2VjcmV0IGtleQ=="

func testSigner() *Signer {
	return &Signer{
		Key:        "test-key",
		Secret:     testSecret,
		Passphrase: "test-pass",
	}
}

func TestSignAt_Deterministic(t *testing.T) {
	s := testSigner()

	sig, err := s.SignAt("GET", "/profiles", "", 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const want = "hNoy5e7YkufX7EeBMsXUu9xJRA+kPRVnZKC4KMTmjm0="
	if sig != want {
		t.Fatalf("signature mismatch: got %q want %q", sig, want)
	}

	again, err := s.SignAt("GET", "/profiles", "", 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != sig {
		t.Fatalf("signing is not deterministic: %q vs %q", again, sig)
	}
}

func TestSignAt_WithBody(t *testing.T) {
	s := testSigner()

	sig, err := s.SignAt("POST", "/profiles/transfer", `{"amount":"3.60"}`, 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const want = "htIDqnBTW7/oBZVRnnmmEJwzyCqy2pf6wHcrog5lbxw="
	if sig != want {
		t.Fatalf("signature mismatch: got %q want %q", sig, want)
	}
}

func TestSignAt_TimestampChangesSignature(t *testing.T) {
	s := testSigner()

	sig1, err := s.SignAt("GET", "/profiles", "", 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig2, err := s.SignAt("GET", "/profiles", "", 1000001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig1 == sig2 {
		t.Fatalf("expected different signatures for different timestamps, both %q", sig1)
	}
	const want2 = "TyOKIA736p4jC0ipzIhsaDDkITEaZjDjzxuPNkIjSRw="
	if sig2 != want2 {
		t.Fatalf("signature mismatch: got %q want %q", sig2, want2)
	}
}

func TestSignAt_NoBodyDiffersFromEmptyObject(t *testing.T) {
	s := testSigner()

	noBody, err := s.SignAt("GET", "/profiles", "", 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	emptyObj, err := s.SignAt("GET", "/profiles", "{}", 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if noBody == emptyObj {
		t.Fatalf("omitted body and empty-object body must sign differently, both %q", noBody)
	}
}

func TestSignAt_MissingMethodOrPath(t *testing.T) {
	s := testSigner()

	if _, err := s.SignAt("", "/profiles", "", 1000000); !errors.Is(err, domain.ErrSigningFailed) {
		t.Fatalf("missing method: got %v, want ErrSigningFailed", err)
	}
	if _, err := s.SignAt("GET", "", "", 1000000); !errors.Is(err, domain.ErrSigningFailed) {
		t.Fatalf("missing path: got %v, want ErrSigningFailed", err)
	}
}

func TestSignAt_InvalidSecret(t *testing.T) {
	s := &Signer{Key: "k", Secret: "not valid base64!!!", Passphrase: "p"}

	if _, err := s.SignAt("GET", "/profiles", "", 1000000); !errors.Is(err, domain.ErrSigningFailed) {
		t.Fatalf("invalid secret: got %v, want ErrSigningFailed", err)
	}
}

func TestHeadersAt(t *testing.T) {
	s := testSigner()

	headers, err := s.HeadersAt("GET", "/profiles", "", 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := headers["CB-ACCESS-KEY"], "test-key"; got != want {
		t.Fatalf("CB-ACCESS-KEY mismatch: got %q want %q", got, want)
	}
	if got, want := headers["CB-ACCESS-TIMESTAMP"], "1000000"; got != want {
		t.Fatalf("CB-ACCESS-TIMESTAMP mismatch: got %q want %q", got, want)
	}
	if got, want := headers["CB-ACCESS-PASSPHRASE"], "test-pass"; got != want {
		t.Fatalf("CB-ACCESS-PASSPHRASE mismatch: got %q want %q", got, want)
	}
	if got, want := headers["CB-ACCESS-SIGN"], "hNoy5e7YkufX7EeBMsXUu9xJRA+kPRVnZKC4KMTmjm0="; got != want {
		t.Fatalf("CB-ACCESS-SIGN mismatch: got %q want %q", got, want)
	}
}
