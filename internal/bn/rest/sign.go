package rest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

type param struct {
	key   string
	value string
}

// buildQuery renders parameters in insertion order. Binance verifies the
// signature against the exact byte sequence sent, so ordering matters.
func buildQuery(params []param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.key+"="+p.value)
	}
	return strings.Join(parts, "&")
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// formatAmount renders a quantity or price with up to 8 fractional digits,
// trimming trailing zeros and a trailing dot.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
