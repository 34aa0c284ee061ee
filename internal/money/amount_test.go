package money

import (
	"errors"
	"testing"
)

// TestNormalize проверяет приведение суммы к двум знакам.
func TestNormalize(t *testing.T) {
	got, err := Normalize("12.3")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "12.30" {
		t.Fatalf("expected 12.30, got %s", got)
	}

	got, err = Normalize(" 42.50 ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "42.50" {
		t.Fatalf("expected 42.50, got %s", got)
	}
}

// TestParseAmountRejectsExtraPrecision проверяет отказ от третьего знака.
func TestParseAmountRejectsExtraPrecision(t *testing.T) {
	if _, err := ParseAmount("12.345"); !errors.Is(err, ErrTooPrecise) {
		t.Fatalf("expected ErrTooPrecise, got %v", err)
	}
}

// TestParseAmountCents проверяет перевод в центы.
func TestParseAmountCents(t *testing.T) {
	cents, err := ParseAmount("42.50")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cents != 4250 {
		t.Fatalf("expected 4250, got %d", cents)
	}
}

// TestParseAmountInvalid проверяет ошибки на пустых и некорректных значениях.
func TestParseAmountInvalid(t *testing.T) {
	cases := map[string]error{
		"":      ErrEmpty,
		"   ":   ErrEmpty,
		"12,50": ErrMalformed,
		"abc":   ErrMalformed,
		"0":     ErrNotPositive,
		"-5":    ErrNotPositive,
	}

	for input, want := range cases {
		if _, err := ParseAmount(input); !errors.Is(err, want) {
			t.Fatalf("input %q: expected %v, got %v", input, want, err)
		}
	}
}
