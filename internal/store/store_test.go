package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCompressed_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	s, err := New(filepath.Join(tmpDir, "output"), "seattle")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 1000)
	if err := s.SaveCompressed("tile7", payload); err != nil {
		t.Fatalf("SaveCompressed failed: %v", err)
	}

	path := filepath.Join(tmpDir, "output", "seattle", "tile7.bin.gz")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
	if info.Size() >= int64(len(payload)) {
		t.Errorf("expected compressed file smaller than %d bytes, got %d", len(payload), info.Size())
	}

	got, err := s.Load("tile7")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("round trip mismatch")
	}
}

func TestSaveCompressed_Overwrites(t *testing.T) {
	s, err := New(t.TempDir(), "r")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, data := range [][]byte{[]byte("first"), []byte("second")} {
		if err := s.SaveCompressed("map", data); err != nil {
			t.Fatalf("SaveCompressed failed: %v", err)
		}
	}
	got, err := s.Load("map")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("expected second write to win, got %q", got)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only map.bin.gz, found %d entries", len(entries))
	}
}

func TestInvalidNames(t *testing.T) {
	if _, err := New(t.TempDir(), "../escape"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for region, got %v", err)
	}
	s, err := New(t.TempDir(), "ok")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, name := range []string{"", "a/b", "../x"} {
		if err := s.SaveCompressed(name, nil); !errors.Is(err, ErrInvalidName) {
			t.Errorf("SaveCompressed(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestDecompress_NotGzip(t *testing.T) {
	if _, err := Decompress([]byte("plain")); err == nil {
		t.Error("expected error for non-gzip data")
	}
}
