package sharing

import (
	"strings"
	"testing"
)

// TestShareCodeFormat проверяет формат цифрового кода профиля.
func TestShareCodeFormat(t *testing.T) {
	gen := NewGenerator(6, 12)

	code, err := gen.ShareCode()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}

	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}
}

// TestInvitationCodeFormat проверяет формат кода приглашения.
func TestInvitationCodeFormat(t *testing.T) {
	gen := NewGenerator(6, 12)

	code, err := gen.InvitationCode()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(code) != 12 {
		t.Fatalf("expected 12 characters, got %q", code)
	}

	for _, r := range code {
		if !strings.ContainsRune(invitationAlphabet, r) {
			t.Fatalf("unexpected character %q in code %q", r, code)
		}
	}
}

// TestCodesDiffer проверяет, что последовательные коды не совпадают.
func TestCodesDiffer(t *testing.T) {
	gen := NewGenerator(6, 12)

	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		code, err := gen.InvitationCode()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate invitation code %q", code)
		}
		seen[code] = struct{}{}
	}
}

// TestNormalizeCode проверяет нормализацию вводимого кода.
func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  abcdEF234567 "); got != "ABCDEF234567" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

// TestLooksLikeShareCode различает цифровые и буквенные коды.
func TestLooksLikeShareCode(t *testing.T) {
	if !LooksLikeShareCode("482913") {
		t.Fatal("expected numeric code to match")
	}

	if LooksLikeShareCode("ABCDEF234567") {
		t.Fatal("expected alphanumeric code not to match")
	}
}
