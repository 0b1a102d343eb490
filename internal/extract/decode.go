package extract

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrInvalidEncoding = errors.New("text is not valid UTF-8")

// Decode converts raw file bytes to a string. UTF-8 (with or without BOM)
// and BOM-marked UTF-16 are accepted.
func Decode(raw []byte) (string, error) {
	utf16 := bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) || bytes.HasPrefix(raw, []byte{0xFF, 0xFE})
	if !utf16 && !utf8.Valid(raw) {
		return "", ErrInvalidEncoding
	}

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", eris.Wrap(err, "decode")
	}
	return string(out), nil
}
