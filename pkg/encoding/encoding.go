// Package encoding repairs CJK metadata strings that were decoded with the
// wrong charset somewhere between Calibre and the catalog database. The
// classic failure is GBK or Big5 bytes read as Latin-1, which yields runs
// of accented Latin characters ("ÈýÌå" instead of "三体").
package encoding

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Normalize repairs a mis-decoded string on a best-effort basis. It is
// idempotent and lossy-safe: a string that does not look like Latin-1
// mojibake, or that cannot be confidently re-decoded, comes back
// unchanged. It never fails.
func Normalize(s string) string {
	if s == "" {
		return s
	}

	raw, ok := latin1Bytes(s)
	if !ok {
		// Contains runes outside Latin-1 (already-correct CJK text, or
		// U+FFFD where the original bytes are gone). Nothing to repair.
		return s
	}

	if out, ok := tryDecode(simplifiedchinese.GBK.NewDecoder().Bytes(raw)); ok {
		return out
	}
	if out, ok := tryDecode(traditionalchinese.Big5.NewDecoder().Bytes(raw)); ok {
		return out
	}

	return s
}

// latin1Bytes reverses a Latin-1 decode. It only succeeds when every rune
// fits in a byte and at least one is in the high half, i.e. the string
// could plausibly be foreign bytes read as Latin-1.
func latin1Bytes(s string) ([]byte, bool) {
	raw := make([]byte, 0, len(s))
	high := false
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		if r >= 0x80 {
			high = true
		}
		raw = append(raw, byte(r))
	}
	if !high {
		return nil, false
	}
	return raw, true
}

// tryDecode accepts a re-decode only when it produced valid text with no
// replacement characters and at least one multi-byte rune. Anything less
// confident and the caller keeps the original string.
func tryDecode(out []byte, err error) (string, bool) {
	if err != nil {
		return "", false
	}
	decoded := string(out)
	if !utf8.ValidString(decoded) || strings.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}
	for _, r := range decoded {
		if r > 0xFF {
			return decoded, true
		}
	}
	return "", false
}
