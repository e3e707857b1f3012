package encoding

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestToUTF8(t *testing.T) {
	tests := []struct {
		label string
		in    []byte
		want  string
	}{
		{"ISO-8859-1", []byte("Caf\xe9"), "Café"},
		{"ISO-8859-15", []byte("Stra\xdfe"), "Straße"},
		{"windows-1252", []byte("\x80 5"), "€ 5"},
		{"EUC-KR", []byte("\xc7\xd1"), "한"},
		{"UTF-8", []byte("Zürich"), "Zürich"},
		{"", []byte("plain"), "plain"},
		{"x-no-such-charset", []byte("raw\xff"), "raw\xff"},
	}
	for _, tt := range tests {
		if got := ToUTF8(tt.label, tt.in); got != tt.want {
			t.Errorf("ToUTF8(%q, %q) = %q, want %q", tt.label, tt.in, got, tt.want)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("x-no-such-charset"); !errors.Is(err, ErrUnknownCharset) {
		t.Errorf("expected ErrUnknownCharset, got %v", err)
	}
}

func TestCharsetReader(t *testing.T) {
	r, err := CharsetReader("iso-8859-1", strings.NewReader("K\xf6ln"))
	if err != nil {
		t.Fatalf("CharsetReader failed: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "Köln" {
		t.Errorf("got %q, want %q", got, "Köln")
	}
}
