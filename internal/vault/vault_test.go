package vault

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	v := New("test-passphrase")
	plaintext := []byte("hello, vault!")

	blob, err := v.Seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	decrypted, err := v.Open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if !bytes.Equal(plaintext, decrypted) {
		t.Fatalf("got %q, want %q", decrypted, plaintext)
	}
}

func TestWrongPassphrase(t *testing.T) {
	v1 := New("correct-passphrase")
	v2 := New("wrong-passphrase")

	blob, err := v1.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := v2.Open(blob); err == nil {
		t.Fatal("expected error opening with wrong passphrase")
	}
}

func TestDifferentPassphrasesDifferentKeys(t *testing.T) {
	v1 := New("passphrase-one")
	v2 := New("passphrase-two")

	if v1.key == v2.key {
		t.Fatal("different passphrases produced the same key")
	}
}

func TestStringRoundTrip(t *testing.T) {
	v := New("test")

	encoded, err := v.SealString("sk-ant-key")
	if err != nil {
		t.Fatalf("seal string: %v", err)
	}

	decoded, err := v.OpenString(encoded)
	if err != nil {
		t.Fatalf("open string: %v", err)
	}
	if decoded != "sk-ant-key" {
		t.Fatalf("got %q, want sk-ant-key", decoded)
	}
}

func TestOpenTruncatedBlob(t *testing.T) {
	v := New("test")

	if _, err := v.Open([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}
