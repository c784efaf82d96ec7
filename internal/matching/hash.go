package matching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Fingerprint returns the cache key for a flat set of preference values.
//
// The values are serialized as JSON with lexicographically sorted keys and
// folded over their UTF-16 code units with hash = hash*31 + unit in 32-bit
// signed arithmetic. The absolute value is rendered in base 36. This is a
// non-cryptographic key: collisions only risk serving another preference
// set's cached matches. Existing cache entries depend on these exact values.
func Fingerprint(values map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	// encoding/json writes map keys in sorted order.
	if err := enc.Encode(values); err != nil {
		return "", fmt.Errorf("serialize preferences: %w", err)
	}

	return rollingHash(unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n"))), nil
}

// unescapeLineSeparators restores U+2028 and U+2029, which encoding/json
// always escapes and JSON.stringify never does.
func unescapeLineSeparators(data []byte) string {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return string(data)
	}

	var out strings.Builder
	out.Grow(len(data))
	for i := 0; i < len(data); i++ {
		rest := data[i:]
		switch {
		case bytes.HasPrefix(rest, []byte(`\u2028`)):
			out.WriteRune('\u2028')
			i += 5
		case bytes.HasPrefix(rest, []byte(`\u2029`)):
			out.WriteRune('\u2029')
			i += 5
		case data[i] == '\\' && i+1 < len(data):
			// Escape pairs are copied whole; `\\u2028` is text, not a separator.
			out.Write(data[i : i+2])
			i++
		default:
			out.WriteByte(data[i])
		}
	}
	return out.String()
}

func rollingHash(s string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	return strconv.FormatInt(abs, 36)
}
