package sharing

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Алфавит без похожих символов (0/O, 1/I/L), чтобы код легко диктовался.
const invitationAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var shareCodePattern = regexp.MustCompile(`^[0-9]{4,12}$`)

type Generator struct {
	shareCodeLength      int
	invitationCodeLength int
}

// NewGenerator создает генератор кодов доступа к профилям.
func NewGenerator(shareCodeLength, invitationCodeLength int) *Generator {
	return &Generator{
		shareCodeLength:      shareCodeLength,
		invitationCodeLength: invitationCodeLength,
	}
}

// ShareCode выпускает цифровой код профиля фиксированной длины.
func (g *Generator) ShareCode() (string, error) {
	return randomString("0123456789", g.shareCodeLength)
}

// InvitationCode выпускает код приглашения фиксированной длины.
func (g *Generator) InvitationCode() (string, error) {
	return randomString(invitationAlphabet, g.invitationCodeLength)
}

// NormalizeCode убирает пробелы и приводит код к верхнему регистру.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LooksLikeShareCode сообщает, похож ли код на цифровой код профиля.
func LooksLikeShareCode(code string) bool {
	return shareCodePattern.MatchString(code)
}

func randomString(alphabet string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}

	return string(out), nil
}
