package input

import "testing"

func TestButtonsHas(t *testing.T) {
	b := Up | Confirm
	if !b.Has(Up) || !b.Has(Confirm) {
		t.Fatalf("expected up and confirm in %v", b)
	}
	if b.Has(Down) {
		t.Fatalf("expected down to be absent")
	}
	if !b.Has(Down | Confirm) {
		t.Fatalf("expected any-of match")
	}
}

func TestButtonsString(t *testing.T) {
	if got := (Up | Menu).String(); got != "up+menu" {
		t.Fatalf("expected up+menu, got %q", got)
	}
	if got := Buttons(0).String(); got != "none" {
		t.Fatalf("expected none, got %q", got)
	}
}
