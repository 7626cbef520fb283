package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"cupart/internal/split"
)

func writeBinaryRecord(t *testing.T, dir string, index int, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepathIndex(index)+".bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}
}

func filepathIndex(index int) string {
	return strconv.Itoa(index)
}

func TestBinaryLoaderReadsPixelsAndLabel(t *testing.T) {
	dir := t.TempDir()
	pixels := Pixels{Width: 4, Height: 2, Data: []uint8{0, 1, 2, 3, 4, 5, 6, 255}}
	writeBinaryRecord(t, dir, 7, EncodeBinary(pixels, split.BinaryVertical))

	loader := NewBinaryLoader(dir, 4, 2)
	got, label, err := loader.Load(7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if label != split.BinaryVertical {
		t.Fatalf("unexpected label %v", label)
	}
	if got.Width != 4 || got.Height != 2 || len(got.Data) != 8 {
		t.Fatalf("unexpected shape %+v", got)
	}
	if got.At(3, 1) != 255 || got.At(1, 0) != 1 {
		t.Fatalf("unexpected pixel values %v", got.Data)
	}
}

func TestBinaryLoaderDefaultsTo32x32(t *testing.T) {
	loader := NewBinaryLoader("db", 0, 0)
	if loader.RecordSize() != 32*32+1 {
		t.Fatalf("unexpected record size %d", loader.RecordSize())
	}
	if loader.Path(12) != filepath.Join("db", "12.bin") {
		t.Fatalf("unexpected path %s", loader.Path(12))
	}
}

func TestBinaryLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	loader := NewBinaryLoader(dir, 2, 2)

	if _, _, err := loader.Load(0); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected open error, got %v", err)
	}

	writeBinaryRecord(t, dir, 1, []byte{1, 2, 3})
	if _, _, err := loader.Load(1); !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected short read, got %v", err)
	}

	writeBinaryRecord(t, dir, 2, []byte{1, 2, 3, 4, 0, 9})
	if _, _, err := loader.Load(2); !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected short read for oversized record, got %v", err)
	}

	writeBinaryRecord(t, dir, 3, []byte{1, 2, 3, 4, 6})
	if _, _, err := loader.Load(3); !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error for label 6, got %v", err)
	}
}

func TestValuesFlattensSamples(t *testing.T) {
	px := Pixels{Width: 2, Height: 1, Data: []uint8{3, 200}}
	if got := Values(px); len(got) != 2 || got[1] != 200 {
		t.Fatalf("unexpected pixel values %v", got)
	}
	if Width(px) != 2 {
		t.Fatalf("unexpected pixel width %d", Width(px))
	}
	f := Features{27, 0.5, -1}
	if got := Values(f); len(got) != 3 || got[0] != 27 {
		t.Fatalf("unexpected feature values %v", got)
	}
}
