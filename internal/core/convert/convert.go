// Package convert holds the scalar conversions used by device state derivation.
package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
)

// Round2 rounds x to two decimals, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// CelsiusToFahrenheit reports ok=false when c is not a finite number.
func CelsiusToFahrenheit(c float64) (float64, bool) {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0, false
	}
	return Round2(c*1.8 + 32), true
}

// IntToHex renders n as two upper-case hex digits. Only the last two digits
// of the base-16 form are kept, so 256 encodes as "00" and -1 as "-1".
func IntToHex(n int) string {
	hex := "00" + strconv.FormatInt(int64(n), 16)
	return strings.ToUpper(hex[len(hex)-2:])
}

// HexToInt parses the longest hex prefix of s, like a lenient base-16 parser would.
// An empty string decodes as zero.
func HexToInt(s string) (int, error) {
	if s == "" {
		s = "00"
	}
	str := strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if str != "" && (str[0] == '-' || str[0] == '+') {
		neg = str[0] == '-'
		str = str[1:]
	}
	if len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X') {
		str = str[2:]
	}
	end := 0
	for end < len(str) && isHexDigit(str[end]) {
		end++
	}
	if end == 0 {
		return 0, domain.InvalidInput("not a hex number: %q", s)
	}
	n, err := strconv.ParseInt(str[:end], 16, 64)
	if err != nil {
		return 0, domain.InvalidInput("hex number out of range: %q", s)
	}
	if neg {
		n = -n
	}
	return int(n), nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
