package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32))
	svc, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service")
	}

	plain := []byte("payslip contents")
	sealed, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(sealed, plain) {
		t.Fatal("ciphertext must differ from plaintext")
	}

	opened, err := svc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("round trip mismatch: %q", opened)
	}
}

func TestUnconfiguredServicePassesThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.Configured() {
		t.Fatal("expected unconfigured service")
	}

	plain := []byte("data")
	out, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatal("unconfigured encrypt must pass data through")
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("too-short"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestDecryptRejectsTruncatedCiphertext(t *testing.T) {
	key := hex.EncodeToString(bytes.Repeat([]byte{0x01}, 32))
	svc, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := svc.Decrypt([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
