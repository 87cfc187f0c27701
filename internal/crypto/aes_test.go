package crypto

import (
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	sealed, err := s.Seal("sk-test-123")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatalf("expected sealed prefix, got %q", sealed)
	}
	if strings.Contains(sealed, "sk-test-123") {
		t.Fatal("sealed value leaks plaintext")
	}

	plain, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if plain != "sk-test-123" {
		t.Errorf("Open = %q, want %q", plain, "sk-test-123")
	}
}

func TestSealer_NilPassthrough(t *testing.T) {
	s, err := NewSealer("")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	if s != nil {
		t.Fatal("expected nil sealer for empty key")
	}
	out, _ := s.Seal("plain")
	if out != "plain" {
		t.Errorf("nil Seal = %q", out)
	}
	out, _ = s.Open("plain")
	if out != "plain" {
		t.Errorf("nil Open = %q", out)
	}
}

func TestSealer_OpenLegacyPlaintext(t *testing.T) {
	s, _ := NewSealer(testKey)
	out, err := s.Open("legacy-value")
	if err != nil || out != "legacy-value" {
		t.Errorf("Open(legacy) = %q, %v", out, err)
	}
}

func TestSealer_WrongKey(t *testing.T) {
	a, _ := NewSealer(testKey)
	b, _ := NewSealer(strings.Repeat("z", 32))

	sealed, _ := a.Seal("secret")
	if _, err := b.Open(sealed); err == nil {
		t.Error("expected decrypt failure with wrong key")
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"raw32", testKey, false},
		{"hex64", strings.Repeat("ab", 32), false},
		{"base64", "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=", false},
		{"short", "short", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := DeriveKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DeriveKey error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(k) != 32 {
				t.Errorf("key length = %d, want 32", len(k))
			}
		})
	}
}
