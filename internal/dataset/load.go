package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// MaxScanLines bounds how many leading lines the header heuristic inspects.
const MaxScanLines = 30

// fallbackEncodings are tried in order when the payload is not valid UTF-8.
var fallbackEncodings = []encoding.Encoding{
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// CheckName rejects any file whose name does not end in ".csv".
func CheckName(filename string) error {
	if !strings.HasSuffix(filename, ".csv") {
		return reject("Only CSV files are supported", nil)
	}
	return nil
}

// Load decodes a comma-separated payload, locates its header and data
// rows, and returns a typed dataset with numeric-looking text columns
// coerced. Every failure is a *RejectError.
func Load(name string, data []byte) (*Dataset, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}
	lines := splitLines(text)
	layout := DetectLayout(lines, MaxScanLines)
	header, rows, err := readTable(lines, layout)
	if err != nil {
		return nil, reject(fmt.Sprintf("Failed to parse CSV: %v", err), err)
	}
	ds := New(filepath.Base(name), fixNames(header), rows)
	for _, c := range ds.Columns {
		ds.CoerceNumeric(c, 0.5)
	}
	if ds.Rows() == 0 || len(ds.Columns) == 0 {
		return nil, reject("Dataset is empty", nil)
	}
	if len(ds.Columns) < 2 {
		return nil, reject("Dataset must have at least 2 columns", nil)
	}
	return ds, nil
}

func decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}
	for _, enc := range fallbackEncodings {
		out, err := enc.NewDecoder().Bytes(data)
		if err == nil {
			return string(out), nil
		}
	}
	return "", reject("Failed to decode CSV file", nil)
}

func splitLines(text string) []string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// Layout locates the header and first data line. Header is -1 when the
// file carries no usable header and names must be generated.
type Layout struct {
	Header    int
	DataStart int
}

// DetectLayout scans up to maxScan lines for the first line whose numeric
// density reaches 0.5. The header is the closest preceding line with a
// density under 0.3. Without any dense line the first line is taken as a
// conventional header.
func DetectLayout(lines []string, maxScan int) Layout {
	if len(lines) < 2 {
		return Layout{Header: 0, DataStart: 1}
	}
	limit := min(maxScan, len(lines))
	densities := make([]float64, limit)
	for i := 0; i < limit; i++ {
		densities[i] = numericDensity(lines[i])
	}
	start := -1
	for i, d := range densities {
		if d >= 0.5 {
			start = i
			break
		}
	}
	switch start {
	case -1:
		return Layout{Header: 0, DataStart: 1}
	case 0:
		return Layout{Header: -1, DataStart: 0}
	}
	for i := start - 1; i >= 0; i-- {
		if densities[i] < 0.3 {
			return Layout{Header: i, DataStart: start}
		}
	}
	return Layout{Header: -1, DataStart: start}
}

func readTable(lines []string, layout Layout) ([]string, [][]string, error) {
	var header []string
	from := layout.DataStart
	switch {
	case layout.Header == layout.DataStart-1:
		from = layout.Header
	case layout.Header >= 0:
		for _, h := range strings.Split(lines[layout.Header], ",") {
			header = append(header, strings.Trim(strings.Trim(strings.TrimSpace(h), `"`), "'"))
		}
	}
	if from >= len(lines) {
		return header, nil, nil
	}
	records, err := readRecords(strings.Join(lines[from:], "\n"))
	if err != nil {
		return nil, nil, err
	}
	if layout.Header == layout.DataStart-1 {
		if len(records) == 0 {
			return nil, nil, errors.New("no columns to parse from file")
		}
		header, records = records[0], records[1:]
	}
	if header == nil {
		width := 0
		if len(records) > 0 {
			width = len(records[0])
		}
		header = make([]string, width)
		for i := range header {
			header[i] = "Column_" + strconv.Itoa(i+1)
		}
	}
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), from+i+2, len(rec))
		}
	}
	return header, records, nil
}

func readRecords(body string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	var out [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// fixNames trims names, labels blanks "Unnamed: i" and suffixes repeats
// with ".1", ".2" in encounter order.
func fixNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		if _, dup := seen[name]; dup {
			k := seen[base]
			for {
				k++
				cand := base + "." + strconv.Itoa(k)
				if _, taken := seen[cand]; !taken {
					name = cand
					break
				}
			}
			seen[base] = k
		}
		if _, ok := seen[name]; !ok {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
