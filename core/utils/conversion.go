package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToPositiveInt parses a strictly positive decimal integer.
func ToPositiveInt(s string) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("number %d must be positive", i)
	}
	return i, nil
}

// ToBool interprets "1" and "true" (any case) as true and everything else as false.
func ToBool(s string) bool {
	s = strings.TrimSpace(s)
	return s == "1" || strings.EqualFold(s, "true")
}

// ToList splits a comma or whitespace separated list, dropping empty items and duplicates.
func ToList(values ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		for _, item := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' }) {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
