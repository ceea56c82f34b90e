package secrets

import (
	"bytes"
	"strings"
	"testing"
)

func testKeys() map[string][]byte {
	return map[string][]byte{
		"k1": bytes.Repeat([]byte{0x11}, 32),
		"k2": bytes.Repeat([]byte{0x22}, 32),
	}
}

func TestKeyringRoundTrip(t *testing.T) {
	kr, err := NewKeyring("k1", testKeys())
	if err != nil {
		t.Fatal(err)
	}

	enc, err := kr.Encrypt("sk-live-secret")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(enc, "sk-live-secret") {
		t.Fatal("ciphertext leaks plaintext")
	}

	dec, err := kr.Decrypt(enc)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "sk-live-secret" {
		t.Fatalf("got %q", dec)
	}
}

func TestKeyringOldKeyStillReadable(t *testing.T) {
	old, err := NewKeyring("k1", testKeys())
	if err != nil {
		t.Fatal(err)
	}
	enc, err := old.Encrypt("legacy")
	if err != nil {
		t.Fatal(err)
	}

	// Rotated keyring: k2 current, k1 retained.
	rotated, err := NewKeyring("k2", testKeys())
	if err != nil {
		t.Fatal(err)
	}
	dec, err := rotated.Decrypt(enc)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "legacy" {
		t.Fatalf("got %q", dec)
	}
}

func TestKeyringValidation(t *testing.T) {
	if _, err := NewKeyring("", testKeys()); err == nil {
		t.Fatal("expected error for empty key id")
	}
	if _, err := NewKeyring("missing", testKeys()); err == nil {
		t.Fatal("expected error for unknown current key")
	}
	if _, err := NewKeyring("short", map[string][]byte{"short": []byte("too-short")}); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestKeyringDecryptGarbage(t *testing.T) {
	kr, err := NewKeyring("k1", testKeys())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := kr.Decrypt("not-json"); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
	if _, err := kr.Decrypt(`{"key_id":"nope","nonce":"","ciphertext":""}`); err == nil {
		t.Fatal("expected error for unknown key id")
	}
}
