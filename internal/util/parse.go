package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var amountRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParseAmount extracts the first number from a price-like string such as
// "₹1,299.00" or "Rs. 999". Thousands separators are ignored.
func ParseAmount(s string) (float64, bool) {
	m := amountRegex.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Clip returns s truncated to at most n runes.
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// DiscountPercent returns the whole-number percentage saved when paying price
// instead of original. ok is false unless 0 <= price < original.
func DiscountPercent(price, original float64) (float64, bool) {
	if original <= 0 || price < 0 || price >= original {
		return 0, false
	}
	return math.Round((original - price) / original * 100), true
}
