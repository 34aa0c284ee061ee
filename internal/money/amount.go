package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmpty       = errors.New("amount is empty")
	ErrMalformed   = errors.New("amount is malformed")
	ErrTooPrecise  = errors.New("amount has more than two decimal places")
	ErrNotPositive = errors.New("amount must be greater than zero")
	ErrOutOfRange  = errors.New("amount is out of range")
)

// maxAmountCents ограничивает суммы одной записью до миллиарда.
const maxAmountCents = 100_000_000_000

// ParseAmount разбирает десятичную строку суммы в центы.
// Дробная часть длиннее двух знаков отклоняется, а не округляется.
func ParseAmount(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrEmpty
	}

	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrMalformed
	}

	if value.Exponent() < -2 && !value.Equal(value.Round(2)) {
		return 0, ErrTooPrecise
	}

	cents := value.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, ErrTooPrecise
	}

	if !cents.IsPositive() {
		return 0, ErrNotPositive
	}

	result := cents.IntPart()
	if result > maxAmountCents {
		return 0, ErrOutOfRange
	}

	return result, nil
}

// Normalize приводит строку суммы к виду с двумя знаками после запятой.
func Normalize(raw string) (string, error) {
	cents, err := ParseAmount(raw)
	if err != nil {
		return "", err
	}

	return FormatCents(cents), nil
}

// FormatCents форматирует центы как десятичную строку с двумя знаками.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
