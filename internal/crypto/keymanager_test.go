package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptSecret("super-secret-api-key", "password1")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	got, err := DecryptSecret(blob, "password1")
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if got != "super-secret-api-key" {
		t.Errorf("DecryptSecret = %q, want original secret", got)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptSecret("s3cret", "right")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptSecret(blob, "wrong"); err == nil {
		t.Fatal("DecryptSecret succeeded with the wrong password")
	}
}

func TestLoadSecretPrecedence(t *testing.T) {
	// Raw secret wins.
	got, err := LoadSecret(SecretConfig{RawSecret: "raw"})
	if err != nil || got != "raw" {
		t.Fatalf("LoadSecret(raw) = %q, %v", got, err)
	}

	// Encrypted file path.
	blob, err := EncryptSecret("from-file", "pw")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "secret.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = LoadSecret(SecretConfig{EncryptedSecretPath: path, Password: "pw"})
	if err != nil || got != "from-file" {
		t.Fatalf("LoadSecret(file) = %q, %v", got, err)
	}

	// Nothing configured.
	if _, err := LoadSecret(SecretConfig{}); err == nil {
		t.Fatal("LoadSecret accepted an empty config")
	}
}

func TestSignHexDeterministic(t *testing.T) {
	// Known HMAC-SHA256 vector: key "key", message "The quick brown fox
	// jumps over the lazy dog".
	got := SignHex([]byte("key"), "The quick brown fox jumps over the lazy dog")
	want := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got != want {
		t.Errorf("SignHex = %s, want %s", got, want)
	}
}
