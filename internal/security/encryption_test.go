package security

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	if err := InitializeKey("unit-test-key"); err != nil {
		t.Fatal(err)
	}

	for _, plain := range []string{"zxr10", "с-пробелом и юникодом", ""} {
		sealed, err := Encrypt(plain)
		if err != nil {
			t.Fatalf("encrypt %q: %v", plain, err)
		}
		if plain != "" && sealed == plain {
			t.Errorf("ciphertext equals plaintext for %q", plain)
		}
		got, err := Decrypt(sealed)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plain, err)
		}
		if got != plain {
			t.Errorf("round trip = %q, want %q", got, plain)
		}
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	if err := InitializeKey("unit-test-key"); err != nil {
		t.Fatal(err)
	}
	sealed, err := Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	tampered := sealed[:len(sealed)-2] + "AA"
	if tampered == sealed {
		tampered = sealed[:len(sealed)-2] + "BB"
	}
	if _, err := Decrypt(tampered); err == nil {
		t.Error("tampered ciphertext accepted")
	}
	if _, err := Decrypt("not base64 at all!!"); err == nil {
		t.Error("garbage accepted")
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := GeneratePassword(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(pw) < MinPasswordLength {
			t.Fatalf("password %q shorter than %d", pw, MinPasswordLength)
		}
		for _, r := range pw {
			if !strings.ContainsRune(passwordAlphabet, r) {
				t.Fatalf("password %q contains %q outside the alphabet", pw, r)
			}
		}
		if seen[pw] {
			t.Fatalf("duplicate password generated: %q", pw)
		}
		seen[pw] = true
	}

	long, err := GeneratePassword(24)
	if err != nil {
		t.Fatal(err)
	}
	if len(long) != 24 {
		t.Errorf("len = %d, want 24", len(long))
	}
}
