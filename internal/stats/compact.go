package stats

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CompactReport is one training run read back from a compact report file.
type CompactReport struct {
	Title  string
	Names  []string
	Totals []uint64
	Rows   []CompactRow
}

type CompactRow struct {
	Generation uint64
	// Diagonal is NaN for classes without validation samples.
	Diagonal []float64
	Mean     float64
}

// ParseCompact reads every run section of a compact report. A section
// starts at its title line; a file appended by several runs yields several
// reports.
func ParseCompact(r io.Reader) ([]CompactReport, error) {
	var (
		reports []CompactReport
		current *CompactReport
		lineNo  int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if current == nil || !isCompactLine(fields[0]) {
			reports = append(reports, CompactReport{Title: strings.TrimSpace(line)})
			current = &reports[len(reports)-1]
			continue
		}
		switch fields[0] {
		case "Split":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: short column header", lineNo)
			}
			current.Names = append([]string(nil), fields[1:len(fields)-1]...)
		case "Total":
			totals := make([]uint64, 0, len(fields)-1)
			for _, f := range fields[1:] {
				v, err := strconv.ParseUint(f, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad population %q: %w", lineNo, f, err)
				}
				totals = append(totals, v)
			}
			if len(current.Names) > 0 && len(totals) > len(current.Names) {
				totals = totals[:len(current.Names)]
			}
			current.Totals = totals
		case "Gen":
			if len(current.Names) == 0 && len(fields) > 2 {
				current.Names = append([]string(nil), fields[1:len(fields)-1]...)
			}
		default:
			row, err := parseCompactRow(fields, len(current.Names))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Rows = append(current.Rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func ReadCompactFile(path string) ([]CompactReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCompact(f)
}

func isCompactLine(first string) bool {
	switch first {
	case "Split", "Total", "Gen":
		return true
	}
	_, err := strconv.ParseUint(first, 10, 64)
	return err == nil
}

func parseCompactRow(fields []string, classes int) (CompactRow, error) {
	if classes > 0 && len(fields) != classes+2 {
		return CompactRow{}, fmt.Errorf("expected %d columns, got %d", classes+2, len(fields))
	}
	if len(fields) < 3 {
		return CompactRow{}, fmt.Errorf("short generation row")
	}
	gen, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return CompactRow{}, fmt.Errorf("bad generation %q: %w", fields[0], err)
	}
	row := CompactRow{Generation: gen}
	for _, f := range fields[1 : len(fields)-1] {
		v, err := parseCell(f)
		if err != nil {
			return CompactRow{}, err
		}
		row.Diagonal = append(row.Diagonal, v)
	}
	row.Mean, err = parseCell(fields[len(fields)-1])
	if err != nil {
		return CompactRow{}, err
	}
	return row, nil
}

func parseCell(f string) (float64, error) {
	if f == emptyCell {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil {
		return 0, fmt.Errorf("bad percentage %q: %w", f, err)
	}
	return v, nil
}
