package dataset

import (
	"os"

	"cupart/internal/split"
)

const (
	DefaultCUWidth  = 32
	DefaultCUHeight = 32
)

// BinaryLoader reads <Dir>/<index>.bin files holding Width*Height pixel bytes
// followed by one label byte.
type BinaryLoader struct {
	Dir    string
	Width  int
	Height int
}

func NewBinaryLoader(dir string, width, height int) BinaryLoader {
	if width <= 0 {
		width = DefaultCUWidth
	}
	if height <= 0 {
		height = DefaultCUHeight
	}
	return BinaryLoader{Dir: dir, Width: width, Height: height}
}

// RecordSize is the exact byte length of one record.
func (l BinaryLoader) RecordSize() int {
	return l.Width*l.Height + 1
}

func (l BinaryLoader) Path(index uint64) string {
	return recordPath(l.Dir, index, ".bin")
}

func (l BinaryLoader) Load(index uint64) (Pixels, split.Split, error) {
	path := l.Path(index)
	data, err := os.ReadFile(path)
	if err != nil {
		return Pixels{}, split.Unknown, loadError(ErrOpen, path, "%v", err)
	}
	size := l.RecordSize()
	if len(data) != size {
		return Pixels{}, split.Unknown, loadError(ErrShortRead, path, "got %d bytes want %d", len(data), size)
	}
	label := split.FromByte(data[size-1])
	if !label.Valid() {
		return Pixels{}, split.Unknown, loadError(ErrParse, path, "label byte %d out of range", data[size-1])
	}
	return Pixels{
		Width:  l.Width,
		Height: l.Height,
		Data:   data[:size-1:size-1],
	}, label, nil
}

// EncodeBinary renders a record in the on-disk layout.
func EncodeBinary(p Pixels, label split.Split) []byte {
	out := make([]byte, 0, len(p.Data)+1)
	out = append(out, p.Data...)
	return append(out, byte(label))
}
