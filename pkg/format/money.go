package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseEURToCents parses a user-entered euro amount such as "1.234,56",
// "1,234.56", "12,50 €" or "12,345".
//
// When both ',' and '.' occur, the rightmost one is the decimal separator.
// A lone separator followed by one or two trailing digits is decimal; followed
// by exactly three digits, or occurring more than once, it groups thousands.
// So "12,345" is 1234500 cents. Every group after the first has exactly three
// digits. Negative and non-numeric input is rejected.
func ParseEURToCents(text string) (int64, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSuffix(strings.TrimSpace(s), "EUR")
	s = strings.TrimPrefix(s, "€")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, false
	}

	var intPart, fracPart string
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		dec, group := ",", "."
		if dot > comma {
			dec, group = ".", ","
		}
		if strings.Count(s, dec) != 1 {
			return 0, false
		}
		grouped, frac, _ := strings.Cut(s, dec)
		ip, ok := ungroup(grouped, group)
		if !ok {
			return 0, false
		}
		intPart, fracPart = ip, frac
	case comma >= 0 || dot >= 0:
		sep := ","
		if dot >= 0 {
			sep = "."
		}
		idx := strings.LastIndex(s, sep)
		trailing := len(s) - idx - 1
		switch {
		case strings.Count(s, sep) == 1 && (trailing == 1 || trailing == 2):
			intPart, fracPart = s[:idx], s[idx+1:]
		case trailing == 3:
			ip, ok := ungroup(s, sep)
			if !ok {
				return 0, false
			}
			intPart = ip
		default:
			return 0, false
		}
	default:
		intPart = s
	}

	if len(fracPart) > 2 || !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return 0, false
	}
	if intPart == "" && fracPart == "" {
		return 0, false
	}
	if intPart == "" {
		intPart = "0"
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	euros, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || euros > (1<<63-1)/100-1 {
		return 0, false
	}
	cents, _ := strconv.ParseInt(fracPart, 10, 64)
	return euros*100 + cents, true
}

// ungroup removes thousands separators from s: a leading group of one to
// three digits, then groups of exactly three.
func ungroup(s, sep string) (string, bool) {
	groups := strings.Split(s, sep)
	if len(groups) == 1 {
		return s, true
	}
	if n := len(groups[0]); n == 0 || n > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatEURCents renders cents the German way: 123456 -> "1.234,56 €".
// Euros and cents are formatted separately so large amounts stay exact.
func FormatEURCents(cents int64) string {
	sign := ""
	u := uint64(cents)
	if cents < 0 {
		sign = "-"
		u = -u
	}
	euros := strings.ReplaceAll(humanize.Comma(int64(u/100)), ",", ".")
	return fmt.Sprintf("%s%s,%02d €", sign, euros, u%100)
}
