package cryptox

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestDeriveMatchKeyCommutative(t *testing.T) {
	secret := []byte("server-secret")

	pairs := [][2]int64{
		{1, 2},
		{42, 7},
		{999999, 1000000},
		{10, 9},
	}
	for _, pair := range pairs {
		k1 := DeriveMatchKey(pair[0], pair[1], secret)
		k2 := DeriveMatchKey(pair[1], pair[0], secret)
		if !bytes.Equal(k1, k2) {
			t.Fatalf("key for pair (%d,%d) is not commutative", pair[0], pair[1])
		}
		if len(k1) != 32 {
			t.Fatalf("expected 32 bytes of key material, got %d", len(k1))
		}
	}
}

func TestDeriveMatchKeyDistinctPairs(t *testing.T) {
	secret := []byte("server-secret")

	k1 := DeriveMatchKey(1, 2, secret)
	k2 := DeriveMatchKey(1, 3, secret)
	if bytes.Equal(k1, k2) {
		t.Fatal("different pairs must derive different keys")
	}

	k3 := DeriveMatchKey(1, 2, []byte("other-secret"))
	if bytes.Equal(k1, k3) {
		t.Fatal("different secrets must derive different keys")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	key := DeriveMatchKey(11, 22, []byte("server-secret"))

	plaintexts := []string{
		"",
		"hey",
		"안녕하세요 👋",
		strings.Repeat("long message ", 500),
	}
	for _, plaintext := range plaintexts {
		envelope, err := EncryptMessage(plaintext, key)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}

		decrypted, err := DecryptMessage(envelope, key)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if decrypted != plaintext {
			t.Fatalf("round trip mismatch: got %q want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptProducesFreshIV(t *testing.T) {
	key := DeriveMatchKey(11, 22, []byte("server-secret"))

	e1, err := EncryptMessage("same message", key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	e2, err := EncryptMessage("same message", key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if e1 == e2 {
		t.Fatal("two encryptions of the same plaintext must differ")
	}
}

func TestDecryptRejectsBitFlips(t *testing.T) {
	key := DeriveMatchKey(11, 22, []byte("server-secret"))

	envelope, err := EncryptMessage("tamper target", key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}

	for i := 0; i < len(raw); i++ {
		flipped := make([]byte, len(raw))
		copy(flipped, raw)
		flipped[i] ^= 0x01

		_, err := DecryptMessage(base64.StdEncoding.EncodeToString(flipped), key)
		if err == nil {
			t.Fatalf("bit flip at byte %d was not detected", i)
		}
		if !IsDecryptionError(err) {
			t.Fatalf("expected DecryptionError for flip at byte %d, got %T", i, err)
		}
	}
}

func TestDecryptRejectsMalformedEnvelopes(t *testing.T) {
	key := DeriveMatchKey(11, 22, []byte("server-secret"))

	cases := []string{
		"not base64 !!!",
		"",
		base64.StdEncoding.EncodeToString([]byte("short")),
	}
	for _, envelope := range cases {
		_, err := DecryptMessage(envelope, key)
		if !IsDecryptionError(err) {
			t.Fatalf("expected DecryptionError for %q, got %v", envelope, err)
		}
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key := DeriveMatchKey(11, 22, []byte("server-secret"))
	other := DeriveMatchKey(11, 23, []byte("server-secret"))

	envelope, err := EncryptMessage("secret", key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := DecryptMessage(envelope, other); !IsDecryptionError(err) {
		t.Fatalf("expected DecryptionError with wrong key, got %v", err)
	}
}

func TestGenericEnvelopeBindsAAD(t *testing.T) {
	key := DeriveMatchKey(1, 2, []byte("server-secret"))

	envelope, err := Encrypt([]byte("+821012345678"), key, []byte("user:7:phone"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := Decrypt(envelope, key, []byte("user:8:phone")); !IsDecryptionError(err) {
		t.Fatalf("expected DecryptionError on aad mismatch, got %v", err)
	}

	plaintext, err := Decrypt(envelope, key, []byte("user:7:phone"))
	if err != nil {
		t.Fatalf("decrypt with matching aad: %v", err)
	}
	if string(plaintext) != "+821012345678" {
		t.Fatalf("unexpected plaintext %q", plaintext)
	}
}
