// Package core provides the ledger domain: accounts, balance entries, and the
// parsing, validation and formatting rules for monetary amounts.
//
// Amounts are exact decimals (shopspring/decimal); no value ever passes
// through binary floating point.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// maxAmount is the largest magnitude the store accepts (NUMERIC(14,2)).
var maxAmount = decimal.RequireFromString("999999999999.99")

// ValidateAmount parses a user-supplied monetary value into an exact decimal
// fixed at two fractional digits.
//
// Both Brazilian and international notations are accepted, with an optional
// "R$" symbol and sign:
//
//	ValidateAmount("1234.56")     -> 1234.56
//	ValidateAmount("1.234,56")    -> 1234.56
//	ValidateAmount("R$ -50,00")   -> -50.00
//	ValidateAmount("1.500")       -> 1500.00 (lone dot + 3 digits groups thousands)
//	ValidateAmount("1,005")       -> ErrInvalidAmount (third fractional digit is significant)
//	ValidateAmount("1,500")       -> 1.50
//
// A lone comma is always the decimal separator. Extra fractional digits are
// accepted only when they are zeros.
func ValidateAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	neg := false
	s, neg = stripSign(s, neg)
	if after, ok := strings.CutPrefix(s, "R$"); ok {
		s = strings.TrimSpace(after)
		s, neg = stripSign(s, neg)
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	intPart, fracPart, err := splitAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if len(fracPart) > 2 {
		if strings.Trim(fracPart[2:], "0") != "" {
			return decimal.Zero, ErrInvalidAmount
		}
		fracPart = fracPart[:2]
	}

	literal := intPart
	if fracPart != "" {
		literal += "." + fracPart
	}
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	if d.Abs().GreaterThan(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// stripSign removes one leading sign. A second sign is left in place and
// rejected later as a non-digit.
func stripSign(s string, neg bool) (string, bool) {
	switch {
	case strings.HasPrefix(s, "-"):
		return strings.TrimSpace(s[1:]), !neg
	case strings.HasPrefix(s, "+"):
		return strings.TrimSpace(s[1:]), neg
	}
	return s, neg
}

// splitAmount separates the integer digits from the fractional digits,
// removing thousands separators.
func splitAmount(s string) (string, string, error) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	var decSep, groupSep byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			decSep, groupSep = ',', '.'
		} else {
			decSep, groupSep = '.', ','
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			// "1,234,567": comma used for grouping only
			groupSep = ','
		} else {
			decSep = ','
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			groupSep = '.'
		} else {
			decSep = '.'
		}
	}

	intPart, fracPart := s, ""
	if decSep != 0 {
		i := strings.LastIndexByte(s, decSep)
		intPart, fracPart = s[:i], s[i+1:]
		if groupSep != 0 && strings.IndexByte(fracPart, groupSep) >= 0 {
			return "", "", ErrInvalidAmount
		}
	}
	if groupSep != 0 {
		groups := strings.Split(intPart, string(groupSep))
		if len(groups) > 1 {
			// a leading group of "0" or "00" is never a thousands group
			if len(groups[0]) < 1 || len(groups[0]) > 3 || groups[0][0] == '0' {
				return "", "", ErrInvalidAmount
			}
			for _, g := range groups[1:] {
				if len(g) != 3 {
					return "", "", ErrInvalidAmount
				}
			}
		}
		intPart = strings.Join(groups, "")
	}
	if intPart == "" {
		intPart = "0"
	}
	if decSep != 0 && fracPart == "" {
		return "", "", ErrInvalidAmount
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return "", "", ErrInvalidAmount
	}
	return intPart, fracPart, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// FormatBRL renders an amount as Brazilian currency text, e.g. "R$ 1.234,56".
//
// Negative amounts carry the sign before the symbol ("-R$ 50,00"). Values are
// rounded to two places half-up on the magnitude (0.125 -> 0,13; -0.125 ->
// -0,13); banker's rounding is not used. A value that rounds to zero is
// printed without sign.
func FormatBRL(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	neg := rounded.IsNegative()
	fixed := rounded.Abs().StringFixed(2)

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	b.WriteString(groupThousands(intPart, '.'))
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}

// groupThousands inserts sep every three digits from the right.
func groupThousands(digits string, sep byte) string {
	if len(digits) <= 3 {
		return digits
	}
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteByte(sep)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
