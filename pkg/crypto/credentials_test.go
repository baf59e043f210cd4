package crypto

import (
	"strings"
	"testing"
)

const testIdentity = "test-host|test-user"

func TestNewCredentialCipher(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		wantErr  bool
	}{
		{name: "machine identity", identity: testIdentity},
		{name: "empty identity", identity: "", wantErr: true},
		{name: "hostname only", identity: "some-host|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCredentialCipher(tt.identity)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("expected non-nil cipher")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCredentialCipher(testIdentity)
	if err != nil {
		t.Fatalf("create cipher: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "simple password", plaintext: "hunter2"},
		{name: "special characters", plaintext: "p@ss/w:rd?#&="},
		{name: "unicode", plaintext: "pässwörd-日本語-🔑"},
		{name: "long", plaintext: strings.Repeat("x", 500)},
		{name: "single char", plaintext: "a"},
		{name: "block-aligned length", plaintext: strings.Repeat("b", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := c.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			dec, err := c.Decrypt(enc)
			if err != nil {
				t.Fatalf("decrypt: %v", err)
			}
			if dec != tt.plaintext {
				t.Errorf("round trip mismatch: got %q, want %q", dec, tt.plaintext)
			}
		})
	}
}

func TestCiphertextNonDeterministic(t *testing.T) {
	c, err := NewCredentialCipher(testIdentity)
	if err != nil {
		t.Fatalf("create cipher: %v", err)
	}

	a, err := c.Encrypt("same-password")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := c.Encrypt("same-password")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertext; IV is not random")
	}
}

func TestSameIdentityDecrypts(t *testing.T) {
	c1, err := NewCredentialCipher(testIdentity)
	if err != nil {
		t.Fatalf("create first cipher: %v", err)
	}
	c2, err := NewCredentialCipher(testIdentity)
	if err != nil {
		t.Fatalf("create second cipher: %v", err)
	}

	enc, err := c1.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	dec, err := c2.Decrypt(enc)
	if err != nil {
		t.Fatalf("decrypt with second cipher: %v", err)
	}
	if dec != "secret" {
		t.Errorf("got %q, want %q", dec, "secret")
	}
}

func TestDecryptFailures(t *testing.T) {
	c, err := NewCredentialCipher(testIdentity)
	if err != nil {
		t.Fatalf("create cipher: %v", err)
	}
	other, err := NewCredentialCipher("other-host|other-user")
	if err != nil {
		t.Fatalf("create other cipher: %v", err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "not base64", input: "%%%not-base64%%%"},
		{name: "too short", input: "QUJD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.input); err == nil {
				t.Error("expected decryption error, got nil")
			}
		})
	}

	// CBC has no authentication tag, so a wrong key yields either a padding
	// error or garbage, never the original plaintext.
	enc, err := other.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if dec, err := c.Decrypt(enc); err == nil && dec == "secret" {
		t.Error("decrypt with wrong key recovered the plaintext")
	}
}
