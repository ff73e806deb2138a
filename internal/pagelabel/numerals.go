package pagelabel

import (
	"fmt"
	"strconv"
	"strings"
)

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// ToRoman renders n with the subtractive Roman algorithm. Values above 3999
// keep adding leading M's; values below 1 fall back to decimal.
func ToRoman(n int, upper bool) string {
	if n < 1 {
		return strconv.Itoa(n)
	}
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	if upper {
		return b.String()
	}
	return strings.ToLower(b.String())
}

// ParseRoman reads a canonical Roman numeral in either case.
func ParseRoman(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty roman numeral")
	}
	upper := strings.ToUpper(s)
	total := 0
	rest := upper
	for _, r := range romanTable {
		for strings.HasPrefix(rest, r.symbol) {
			total += r.value
			rest = rest[len(r.symbol):]
		}
	}
	if rest != "" || ToRoman(total, true) != upper {
		return 0, fmt.Errorf("invalid roman numeral %q", s)
	}
	return total, nil
}

// ToAlpha renders n in bijective base 26: 1→a, 26→z, 27→aa.
// Values below 1 fall back to decimal.
func ToAlpha(n int, upper bool) string {
	if n < 1 {
		return strconv.Itoa(n)
	}
	base := byte('a')
	if upper {
		base = 'A'
	}
	var digits []byte
	for n > 0 {
		n--
		digits = append(digits, base+byte(n%26))
		n /= 26
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// ParseAlpha reads a bijective base-26 numeral in either case.
func ParseAlpha(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty alphabetic numeral")
	}
	total := 0
	for _, c := range strings.ToLower(s) {
		if c < 'a' || c > 'z' {
			return 0, fmt.Errorf("invalid alphabetic numeral %q", s)
		}
		total = total*26 + int(c-'a') + 1
	}
	return total, nil
}
