// Package dataset reads coding-unit samples from a database directory whose
// files are named by zero-based numeric index.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"cupart/internal/split"
)

var (
	ErrOpen      = errors.New("open sample")
	ErrShortRead = errors.New("short sample read")
	ErrParse     = errors.New("parse sample")
)

// Pixels is a row-major grid of 8-bit luma intensities.
type Pixels struct {
	Width  int
	Height int
	Data   []uint8
}

// At returns the intensity at column x, row y.
func (p Pixels) At(x, y int) uint8 {
	return p.Data[y*p.Width+x]
}

// Features holds the quantization parameter at index 0 followed by the
// extracted features.
type Features []float64

// QP returns the quantization parameter.
func (f Features) QP() float64 {
	if len(f) == 0 {
		return 0
	}
	return f[0]
}

// Sample is the set of observation representations an environment can be
// instantiated with.
type Sample interface {
	Pixels | Features
}

// Loader opens one dataset record addressed by index.
type Loader[S Sample] interface {
	Load(index uint64) (S, split.Split, error)
}

// Values flattens a sample into a float vector.
func Values[S Sample](sample S) []float64 {
	switch v := any(sample).(type) {
	case Pixels:
		out := make([]float64, len(v.Data))
		for i, px := range v.Data {
			out[i] = float64(px)
		}
		return out
	case Features:
		return []float64(v)
	default:
		return nil
	}
}

// Width returns the length of the vector Values produces for samples shaped
// like sample.
func Width[S Sample](sample S) int {
	switch v := any(sample).(type) {
	case Pixels:
		return len(v.Data)
	case Features:
		return len(v)
	default:
		return 0
	}
}

func recordPath(dir string, index uint64, ext string) string {
	return filepath.Join(dir, strconv.FormatUint(index, 10)+ext)
}

func loadError(sentinel error, path string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", sentinel, path, fmt.Sprintf(format, args...))
}
