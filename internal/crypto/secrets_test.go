package crypto

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	plaintext := []byte("super-secret-value-123")
	sealed, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	opened, err := Open(sealed, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !bytes.Equal(plaintext, opened) {
		t.Fatalf("round-trip failed: got %q, want %q", opened, plaintext)
	}
}

func TestWireLayout(t *testing.T) {
	key, _ := GenerateKey()

	plaintext := []byte("payload")
	sealed, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// [16-byte IV][16-byte tag][ciphertext], ciphertext same length as plaintext.
	if got, want := len(sealed), ivSize+tagSize+len(plaintext); got != want {
		t.Fatalf("sealed length = %d, want %d", got, want)
	}
}

func TestEmptyPlaintext(t *testing.T) {
	key, _ := GenerateKey()

	sealed, err := Seal([]byte(""), key)
	if err != nil {
		t.Fatalf("Seal empty: %v", err)
	}

	opened, err := Open(sealed, key)
	if err != nil {
		t.Fatalf("Open empty: %v", err)
	}

	if len(opened) != 0 {
		t.Fatalf("expected empty plaintext, got %q", opened)
	}
}

func TestWrongKeyRejected(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()

	sealed, err := Seal([]byte("secret"), key1)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Open(sealed, key2); err == nil {
		t.Fatal("expected error opening with wrong key")
	}
}

func TestTamperedCiphertextRejected(t *testing.T) {
	key, _ := GenerateKey()

	sealed, err := Seal([]byte("secret"), key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := Open(sealed, key); err == nil {
		t.Fatal("expected error opening tampered payload")
	}
}

func TestResolveKey_Base64Passthrough(t *testing.T) {
	key, _ := GenerateKey()

	resolved, err := ResolveKey(EncodeKey(key))
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	if !bytes.Equal(key, resolved) {
		t.Fatal("base64 key material was not used verbatim")
	}
}

func TestResolveKey_PassphraseDeterministic(t *testing.T) {
	k1, err := ResolveKey("correct horse battery staple")
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	k2, _ := ResolveKey("correct horse battery staple")
	k3, _ := ResolveKey("different passphrase")

	if !bytes.Equal(k1, k2) {
		t.Fatal("same passphrase produced different keys")
	}
	if bytes.Equal(k1, k3) {
		t.Fatal("different passphrases produced the same key")
	}
	if len(k1) != KeySize {
		t.Fatalf("derived key length = %d, want %d", len(k1), KeySize)
	}
}

func TestResolveKey_EmptyRejected(t *testing.T) {
	if _, err := ResolveKey(""); err == nil {
		t.Fatal("expected error for empty key material")
	}
}
