package crypto

import (
	"encoding/base64"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewEncryptor(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		if _, err := NewEncryptor(testKey(t)); err != nil {
			t.Errorf("Expected valid key to be accepted: %v", err)
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		if _, err := NewEncryptor("not-base64!!!"); err == nil {
			t.Error("Expected invalid base64 to be rejected")
		}
	})

	t.Run("wrong key length", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString(make([]byte, 16))
		if _, err := NewEncryptor(short); err == nil {
			t.Error("Expected 16-byte key to be rejected")
		}
	})
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	plaintexts := []string{
		"app-password-123",
		"",
		"pässwörd with ünïcode",
	}

	for _, plaintext := range plaintexts {
		ciphertext, err := encryptor.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", plaintext, err)
		}

		decrypted, err := encryptor.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("Round trip mismatch: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	first, err := encryptor.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := encryptor.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if string(first) == string(second) {
		t.Error("Expected distinct ciphertexts for repeated encryption of the same input")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	ciphertext, err := encryptor.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := encryptor.Decrypt(ciphertext); err == nil {
		t.Error("Expected tampered ciphertext to be rejected")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	otherKey := make([]byte, 32)
	for i := range otherKey {
		otherKey[i] = byte(255 - i)
	}
	other, err := NewEncryptor(base64.StdEncoding.EncodeToString(otherKey))
	if err != nil {
		t.Fatalf("Failed to create second encryptor: %v", err)
	}

	ciphertext, err := encryptor.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := other.Decrypt(ciphertext); err == nil {
		t.Error("Expected decryption with a different key to fail")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	if _, err := encryptor.Decrypt([]byte{1, 2, 3}); err == nil {
		t.Error("Expected truncated ciphertext to be rejected")
	}
}
