package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatCents renders minor units as a plain decimal amount ("1250.50"), the
// format the payment gateway expects.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatMoney renders an amount for documents and emails ("KES 12,500.00").
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s%s.%02d", currency, sign, b.String(), cents%100))
}

// ParseAmountCents parses a decimal amount ("1500", "1500.5", "1,500.50")
// into minor units. More than two fractional digits is an error.
func ParseAmountCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}

// FormatDateRange renders a session's dates ("12 - 16 May 2025").
func FormatDateRange(start, end time.Time) string {
	switch {
	case start.IsZero():
		return ""
	case end.IsZero() || start.Equal(end):
		return start.Format("2 January 2006")
	case start.Year() != end.Year():
		return start.Format("2 January 2006") + " - " + end.Format("2 January 2006")
	case start.Month() != end.Month():
		return start.Format("2 January") + " - " + end.Format("2 January 2006")
	default:
		return fmt.Sprintf("%d - %s", start.Day(), end.Format("2 January 2006"))
	}
}
