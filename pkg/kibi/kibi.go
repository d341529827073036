package kibi

// Binary (1024-based) byte size formatting and parsing, used for recording
// sizes and disk space reporting.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var digitRegex = regexp.MustCompile(`\d+`)
var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")

func FormatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%v bytes", b)
	} else if b < 1024*1024 {
		return fmt.Sprintf("%v KB", b/1024)
	} else if b < 1024*1024*1024 {
		return fmt.Sprintf("%v MB", b/1024/1024)
	} else if b < 1024*1024*1024*1024 {
		return fmt.Sprintf("%v GB", b/1024/1024/1024)
	} else if b < 1024*1024*1024*1024*1024 {
		return fmt.Sprintf("%v TB", b/1024/1024/1024/1024)
	} else {
		return fmt.Sprintf("%v PB", b/1024/1024/1024/1024/1024)
	}
}

// Parse a human byte size such as "80 GB", "80g", "123 mb".
// Suffixes are 1024-based.
func Parse(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	digits := digitRegex.FindString(v)
	if digits == "" {
		return 0, ErrInvalidByteSizeString
	}
	suffix := strings.TrimSpace(v[len(digits):])
	multiplier := int64(1)
	switch suffix {
	case "", "bytes", "b":
	case "kb", "k":
		multiplier = 1024
	case "mb", "m":
		multiplier = 1024 * 1024
	case "gb", "g":
		multiplier = 1024 * 1024 * 1024
	case "tb", "t":
		multiplier = 1024 * 1024 * 1024 * 1024
	case "pb", "p":
		multiplier = 1024 * 1024 * 1024 * 1024 * 1024
	default:
		return 0, ErrInvalidByteSizeString
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	return value * multiplier, nil
}
