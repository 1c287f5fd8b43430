package dataset

import (
	"math"
	"strconv"
	"strings"
)

// naTokens are the cell spellings treated as missing, matching the set
// common CSV readers recognise by default.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// parseCell returns the numeric value of a trimmed cell or NaN.
func parseCell(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	f, ok := parseNumber(s)
	if !ok {
		return math.NaN()
	}
	return f
}

// parseNumber accepts plain decimal and scientific notation. Hex floats
// and digit separators are rejected so "0x10" or "1_000" stay text.
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" || strings.ContainsAny(raw, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// numericDensity is the share of comma-separated cells on a line that
// parse as numbers. Empty cells count toward the total but never as
// numeric.
func numericDensity(line string) float64 {
	cells := strings.Split(line, ",")
	if len(cells) == 0 {
		return 0
	}
	numeric := 0
	for _, cell := range cells {
		cell = strings.Trim(strings.TrimSpace(cell), `"`)
		cell = strings.Trim(cell, "'")
		if cell == "" {
			continue
		}
		if _, ok := parseNumber(cell); ok {
			numeric++
		}
	}
	return float64(numeric) / float64(len(cells))
}
