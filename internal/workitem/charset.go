package workitem

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeBOM transcodes a document that starts with a UTF-8 or UTF-16 byte
// order mark to plain UTF-8. Documents without a BOM are returned unchanged.
func decodeBOM(raw []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), raw)
	if err != nil {
		return nil, fmt.Errorf("decode byte order mark: %w", err)
	}
	return out, nil
}

// charsetReader adapts non UTF-8 documents for encoding/xml.
//
// TFS serializes the event as a .NET string and keeps the original
// encoding="utf-16" declaration even though the SOAP envelope carries it as
// UTF-8. By the time the declaration is read the bytes are UTF-8, so UTF-16
// labels pass through untouched.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(label))
	switch name {
	case "", "utf-8", "utf8", "us-ascii", "ascii", "utf-16", "utf-16le", "utf-16be", "unicode":
		return input, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
