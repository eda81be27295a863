package xzlib

import (
	"bytes"
	"testing"

	"github.com/dreamware/xfrase/internal/xerrors"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		bytes.Repeat([]byte{0xAB, 0xCD, 0xEF, 0x01}, 10000),
	}

	for _, src := range cases {
		compressed, err := Compress(src)
		if err != nil {
			t.Fatalf("Compress: %v", err)
		}
		got, err := Decompress(compressed, len(src))
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}
		if !bytes.Equal(got, src) {
			t.Fatalf("round trip mismatch: got %v want %v", got, src)
		}
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	src := bytes.Repeat([]byte{0x42}, 100)
	compressed, err := Compress(src)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := Decompress(compressed, 50); err == nil {
		t.Fatal("expected error for undersized expected length")
	} else if xerrors.CodeOf(err) != xerrors.CorruptData {
		t.Fatalf("expected corrupt_data, got %v", xerrors.CodeOf(err))
	}
	if _, err := Decompress(compressed, 150); err == nil {
		t.Fatal("expected error for oversized expected length")
	} else if xerrors.CodeOf(err) != xerrors.CorruptData {
		t.Fatalf("expected corrupt_data, got %v", xerrors.CodeOf(err))
	}
}

func TestDecompressGarbage(t *testing.T) {
	if _, err := Decompress([]byte{0x00, 0x01, 0x02}, 10); err == nil {
		t.Fatal("expected error decoding garbage")
	}
}
