package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
)

const (
	ivSize  = 16
	tagSize = 16
	keySize = 32
)

// DecryptionError marks a tamper or corruption failure. Callers must treat it
// as an integrity violation, never as an empty message.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return "decryption failed: " + e.Reason
}

func IsDecryptionError(err error) bool {
	_, ok := err.(*DecryptionError)
	return ok
}

// DeriveMatchKey derives the shared symmetric key for a matched pair. The two
// IDs are sorted lexicographically before hashing, so the result is the same
// regardless of argument order. The key is never persisted; it is recomputed
// from the server secret on demand.
func DeriveMatchKey(userIDA, userIDB int64, serverSecret []byte) []byte {
	a := strconv.FormatInt(userIDA, 10)
	b := strconv.FormatInt(userIDB, 10)
	if a > b {
		a, b = b, a
	}

	mac := hmac.New(sha256.New, serverSecret)
	mac.Write([]byte(a + ":" + b))
	return mac.Sum(nil)
}

// Encrypt seals data with AES-256-GCM under the first 32 bytes of key. A
// fresh random 16-byte IV is generated per call. The envelope layout is
// base64(iv || tag || ciphertext); aad, when non-nil, is bound into the tag.
func Encrypt(data, key, aad []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	// Seal appends the tag after the ciphertext; the envelope wants it
	// between the IV and the ciphertext.
	sealed := gcm.Seal(nil, iv, data, aad)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	envelope := make([]byte, 0, ivSize+tagSize+len(ciphertext))
	envelope = append(envelope, iv...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ciphertext...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens an envelope produced by Encrypt. Any malformed input or tag
// mismatch yields a *DecryptionError.
func Decrypt(envelope string, key, aad []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, &DecryptionError{Reason: "invalid base64 envelope"}
	}
	if len(raw) < ivSize+tagSize {
		return nil, &DecryptionError{Reason: "envelope too short"}
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ciphertext := raw[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, &DecryptionError{Reason: "authentication tag mismatch"}
	}

	return plaintext, nil
}

// EncryptMessage encrypts a chat payload under a match key.
func EncryptMessage(plaintext string, matchKey []byte) (string, error) {
	return Encrypt([]byte(plaintext), matchKey, nil)
}

// DecryptMessage reverses EncryptMessage.
func DecryptMessage(envelope string, matchKey []byte) (string, error) {
	plaintext, err := Decrypt(envelope, matchKey, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) < keySize {
		return nil, fmt.Errorf("key material too short: need %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key[:keySize])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return gcm, nil
}
