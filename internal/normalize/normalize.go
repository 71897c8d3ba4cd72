// Package normalize implements hazel's identifier normalizer (spec
// section 4.1): mapping heterogeneous external identifier values onto a
// single canonical string per input kind, so an engine caller can
// register and reference entities by whatever representation is natural
// to them (a string key, a numeric id, an enum-like Stringer, or a URI)
// without every call site hand-rolling its own stringification.
//
// Normalization is injective within each input kind by construction:
// each kind maps through a distinct, information-preserving formatter.
// Collisions across kinds (the string "123" and the integer 123
// normalizing to the same text) are the caller's responsibility, exactly
// as spec section 4.1 leaves it.
package normalize

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxSymbolRunes = 64

// Normalize renders v as its canonical external id string. Supported
// kinds: string, signed/unsigned integers, float32/float64, *url.URL and
// url.URL, and fmt.Stringer implementations whose rendered form looks
// like a short symbol/enum token. Anything else is rejected.
func Normalize(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil

	case int:
		return strconv.FormatInt(int64(t), 10), nil
	case int8:
		return strconv.FormatInt(int64(t), 10), nil
	case int16:
		return strconv.FormatInt(int64(t), 10), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil

	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)

	case url.URL:
		return canonicalizeURL(&t), nil
	case *url.URL:
		if t == nil {
			return "", fmt.Errorf("normalize: nil *url.URL")
		}
		return canonicalizeURL(t), nil

	case fmt.Stringer:
		s := t.String()
		if utf8.RuneCountInString(s) > maxSymbolRunes || strings.ContainsAny(s, " \t\n\r") {
			return "", fmt.Errorf("normalize: %T.String() is not a short symbol token: %q", t, s)
		}
		return s, nil

	default:
		return "", fmt.Errorf("normalize: unsupported identifier kind %T", v)
	}
}

func normalizeFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("normalize: float identifier must be finite, got %v", f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func canonicalizeURL(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	return c.String()
}
