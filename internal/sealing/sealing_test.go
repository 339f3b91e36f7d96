package sealing

import (
	"errors"
	"strings"
	"testing"
)

func newTestBox(t *testing.T) *Box {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	box, err := NewFromHex(key)
	if err != nil {
		t.Fatalf("NewFromHex: %v", err)
	}
	return box
}

func TestSealOpen(t *testing.T) {
	box := newTestBox(t)

	sealed, err := box.Seal("Brown leather")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if strings.Contains(sealed, "Brown") {
		t.Error("sealed value leaks plaintext")
	}

	plain, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if plain != "Brown leather" {
		t.Errorf("expected %q, got %q", "Brown leather", plain)
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	box := newTestBox(t)
	a, _ := box.Seal("same")
	b, _ := box.Seal("same")
	if a == b {
		t.Error("expected different ciphertexts for repeated plaintext")
	}
}

func TestOpenWrongKey(t *testing.T) {
	sealed, _ := newTestBox(t).Seal("secret")
	if _, err := newTestBox(t).Open(sealed); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestOpenGarbage(t *testing.T) {
	box := newTestBox(t)
	for _, in := range []string{"", "not base64!", "c2hvcnQ"} {
		if _, err := box.Open(in); !errors.Is(err, ErrOpen) {
			t.Errorf("Open(%q): expected ErrOpen, got %v", in, err)
		}
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := NewFromHex("zz"); err == nil {
		t.Error("expected error for bad hex")
	}
}
