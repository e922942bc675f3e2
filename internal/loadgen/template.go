package loadgen

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder pattern: {{randint 1 10}}
var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

type randint struct {
	min, max int
}

// parsePlaceholder parses the inside of a {{...}} placeholder
func parsePlaceholder(expr string) (randint, error) {
	fields := strings.Fields(expr)
	if len(fields) != 3 || fields[0] != "randint" {
		return randint{}, fmt.Errorf("unknown placeholder {{%s}} (expected {{randint MIN MAX}})", strings.TrimSpace(expr))
	}

	lo, err := strconv.Atoi(fields[1])
	if err != nil {
		return randint{}, fmt.Errorf("invalid randint bound %q", fields[1])
	}
	hi, err := strconv.Atoi(fields[2])
	if err != nil {
		return randint{}, fmt.Errorf("invalid randint bound %q", fields[2])
	}
	if hi < lo {
		return randint{}, fmt.Errorf("randint bounds reversed: %d > %d", lo, hi)
	}
	return randint{min: lo, max: hi}, nil
}

// checkTemplate reports the first invalid placeholder in s
func checkTemplate(s string) error {
	for _, match := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if _, err := parsePlaceholder(match[1]); err != nil {
			return err
		}
	}
	return nil
}

// resolve replaces every placeholder with a fresh random value.
// Both randint bounds are inclusive. Templates are checked by Validate,
// so invalid placeholders are left untouched.
func resolve(s string, rng *rand.Rand) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		r, err := parsePlaceholder(placeholderPattern.FindStringSubmatch(match)[1])
		if err != nil {
			return match
		}
		return strconv.Itoa(r.min + rng.IntN(r.max-r.min+1))
	})
}
