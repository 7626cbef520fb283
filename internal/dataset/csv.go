package dataset

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"cupart/internal/split"
)

// DefaultFeatureCount matches the CNN feature extractor used for 32x32 CUs.
const DefaultFeatureCount = 112

// CSVLayout describes where the data row sits inside a feature file.
type CSVLayout struct {
	// Header skips the first line.
	Header bool
	// LeadingColumns are skipped before the QP column.
	LeadingColumns int
}

// CSVLoader reads <Dir>/<index>.csv files whose data line is
// "QP,label_mnemonic,f_0,...,f_{F-1}".
type CSVLoader struct {
	Dir         string
	NumFeatures int
	Layout      CSVLayout
}

func NewCSVLoader(dir string, numFeatures int, layout CSVLayout) CSVLoader {
	if numFeatures <= 0 {
		numFeatures = DefaultFeatureCount
	}
	return CSVLoader{Dir: dir, NumFeatures: numFeatures, Layout: layout}
}

func (l CSVLoader) Path(index uint64) string {
	return recordPath(l.Dir, index, ".csv")
}

func (l CSVLoader) Load(index uint64) (Features, split.Split, error) {
	path := l.Path(index)
	file, err := os.Open(path)
	if err != nil {
		return nil, split.Unknown, loadError(ErrOpen, path, "%v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if l.Layout.Header && !scanner.Scan() {
		return nil, split.Unknown, loadError(ErrShortRead, path, "missing header line")
	}
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, split.Unknown, loadError(ErrOpen, path, "%v", err)
		}
		return nil, split.Unknown, loadError(ErrShortRead, path, "missing data line")
	}
	return l.parseRow(path, scanner.Text())
}

func (l CSVLoader) parseRow(path, line string) (Features, split.Split, error) {
	fields := strings.Split(strings.TrimRight(line, "\r"), ",")
	offset := l.Layout.LeadingColumns
	want := offset + 2 + l.NumFeatures
	if len(fields) < want {
		return nil, split.Unknown, loadError(ErrParse, path, "got %d columns want at least %d", len(fields), want)
	}

	features := make(Features, l.NumFeatures+1)
	qp, err := strconv.ParseFloat(strings.TrimSpace(fields[offset]), 64)
	if err != nil {
		return nil, split.Unknown, loadError(ErrParse, path, "qp column: %v", err)
	}
	features[0] = qp

	label := split.Parse(fields[offset+1])
	if !label.Valid() {
		return nil, split.Unknown, loadError(ErrParse, path, "unknown split mnemonic %q", strings.TrimSpace(fields[offset+1]))
	}

	for i := 0; i < l.NumFeatures; i++ {
		raw := strings.TrimSpace(fields[offset+2+i])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, split.Unknown, loadError(ErrParse, path, "feature %d: %v", i, err)
		}
		features[i+1] = v
	}
	return features, label, nil
}

// EncodeCSV renders a single-line record in the default layout.
func EncodeCSV(f Features, label split.Split) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(f.QP(), 'g', -1, 64))
	b.WriteByte(',')
	b.WriteString(label.String())
	if len(f) > 1 {
		for _, v := range f[1:] {
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	b.WriteByte('\n')
	return b.String()
}
