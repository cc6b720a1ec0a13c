package password

import (
	"errors"
	"fmt"
	"strings"
)

const (
	minLength  = 8
	maxRepeats = 3

	// Characters accepted as the required symbol.
	symbols = "~`!@#$%^&*()_-+={[}]|\\:;\"'<,>.?/"
)

// ErrPolicy is the root cause of every password policy rejection.
// Callers match it with errors.Is; the wrapped message names the rule.
var ErrPolicy = errors.New("password does not meet the policy")

// Validate trims surrounding whitespace and checks the strength rules in a
// fixed order, reporting the first rule that fails. It returns the trimmed
// password, which is the value that must be hashed and verified.
func Validate(raw string) (string, error) {
	pw := strings.TrimSpace(raw)

	if len(pw) < minLength {
		return "", fmt.Errorf("%w: must be at least %d characters", ErrPolicy, minLength)
	}

	// Character classes are ASCII only. A non-ASCII letter or digit never
	// satisfies a class requirement, though it still counts for length and
	// the repeat limit.
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	counts := make(map[rune]int, len(pw))
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
		if strings.ContainsRune(symbols, r) {
			hasSymbol = true
		}
		counts[r]++
	}

	if !hasUpper {
		return "", fmt.Errorf("%w: must contain at least one uppercase letter", ErrPolicy)
	}
	if !hasLower {
		return "", fmt.Errorf("%w: must contain at least one lowercase letter", ErrPolicy)
	}
	if !hasDigit {
		return "", fmt.Errorf("%w: must contain at least one digit", ErrPolicy)
	}
	if !hasSymbol {
		return "", fmt.Errorf("%w: must contain at least one symbol", ErrPolicy)
	}
	for r, n := range counts {
		if n > maxRepeats {
			return "", fmt.Errorf("%w: character %q appears more than %d times", ErrPolicy, r, maxRepeats)
		}
	}

	return pw, nil
}
