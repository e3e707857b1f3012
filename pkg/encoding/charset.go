// Package encoding converts legacy text encodings to UTF-8. OSM extracts
// are normally UTF-8, but some exporters still write Latin-1 or regional
// code pages and say so in the XML declaration.
package encoding

import (
	"errors"
	"fmt"
	"io"
	"strings"

	textenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownCharset is returned for labels with no known decoder.
var ErrUnknownCharset = errors.New("unknown charset")

// Lookup returns the encoding registered under an IANA label such as
// "ISO-8859-1", "windows-1252" or "EUC-KR".
func Lookup(label string) (textenc.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(label))
	if name == "" || name == "utf-8" || name == "utf8" {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, label)
	}
	return enc, nil
}

// CharsetReader wraps input so it yields UTF-8. It has the signature of
// xml.Decoder.CharsetReader.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// ToUTF8 decodes data from the named charset.
// Returns the original bytes as a string if conversion fails.
func ToUTF8(label string, data []byte) string {
	enc, err := Lookup(label)
	if err != nil {
		return string(data)
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}
