package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateDescription trims surrounding whitespace and removes control
// characters (tab and newlines are kept). When required is true an empty
// result fails with ErrEmptyDescription; otherwise it is returned as "".
func ValidateDescription(raw string, required bool) (string, error) {
	s := sanitize(raw)
	if s == "" {
		if required {
			return "", ErrEmptyDescription
		}
		return "", nil
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return "", fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, MaxDescriptionLength)
	}
	return s, nil
}

// ValidateAccountCode normalizes an account code to upper case and checks it
// is 1..MaxCodeLength characters of ASCII letters, digits, '-' or '_'.
func ValidateAccountCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	if len(code) > MaxCodeLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidCode, MaxCodeLength)
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", fmt.Errorf("%w: character %q not allowed", ErrInvalidCode, r)
		}
	}
	return code, nil
}

// NewAccount validates the inputs of an account-creation request.
func NewAccount(code, description string) (Account, error) {
	c, err := ValidateAccountCode(code)
	if err != nil {
		return Account{}, err
	}
	d, err := ValidateDescription(description, true)
	if err != nil {
		return Account{}, err
	}
	if utf8.RuneCountInString(d) > MaxAccountDescriptionLength {
		return Account{}, fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, MaxAccountDescriptionLength)
	}
	return Account{Code: c, Description: d}, nil
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
