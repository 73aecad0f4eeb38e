package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FeedText converts a feed body to a UTF-8 string.
// Sheet exports are UTF-8, sometimes with a BOM; anything else is treated as Windows-1252,
// which is what spreadsheets saved from older desktop tools produce.
func FeedText(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		// Better a few mangled characters than a dropped feed
		return string(b)
	}
	return string(decoded)
}
