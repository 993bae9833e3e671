package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptSecret_RoundTrip(t *testing.T) {
	const secret = "TXkgc3VwZXIgc2VjcmV0IGtleQ=="
	const password = "hunter2hunter2"

	blob, err := EncryptSecret(secret, password)
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	got, err := DecryptSecret(blob, password)
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if got != secret {
		t.Fatalf("round trip mismatch: got %q want %q", got, secret)
	}
}

func TestDecryptSecret_WrongPassword(t *testing.T) {
	blob, err := EncryptSecret("some-secret", "right-password")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	if _, err := DecryptSecret(blob, "wrong-password"); err == nil {
		t.Fatal("expected decryption failure with wrong password")
	}
}

func TestEncryptSecret_EmptyInputs(t *testing.T) {
	if _, err := EncryptSecret("", "password"); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := EncryptSecret("secret", ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestLoadSecret_RawTakesPrecedence(t *testing.T) {
	got, err := LoadSecret(SecretConfig{RawSecret: "raw-secret", EncryptedSecretPath: "/does/not/exist"})
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if got != "raw-secret" {
		t.Fatalf("LoadSecret mismatch: got %q want %q", got, "raw-secret")
	}
}

func TestLoadSecret_EncryptedFile(t *testing.T) {
	const secret = "file-secret"
	const password = "pw"

	blob, err := EncryptSecret(secret, password)
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	path := filepath.Join(t.TempDir(), "secret.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadSecret(SecretConfig{EncryptedSecretPath: path, SecretPassword: password})
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if got != secret {
		t.Fatalf("LoadSecret mismatch: got %q want %q", got, secret)
	}
}

func TestLoadSecret_NoSource(t *testing.T) {
	if _, err := LoadSecret(SecretConfig{}); err == nil {
		t.Fatal("expected error when no secret source is configured")
	}
}
