package dataset

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestLoadStandardHeader(t *testing.T) {
	rows := []string{
		"Batch, Hour ,Biomass,Label",
		"B1,0,0.5,a",
		"B1,1,0.7,b",
		"B2,0,0.4,a",
		"B2,1,,c",
	}
	ds, err := Load("runs.csv", []byte(strings.Join(rows, "\r\n")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Name != "runs.csv" {
		t.Fatalf("name = %q", ds.Name)
	}
	if ds.Rows() != 4 || len(ds.Columns) != 4 {
		t.Fatalf("shape = %dx%d", ds.Rows(), len(ds.Columns))
	}
	wantNames := []string{"Batch", "Hour", "Biomass", "Label"}
	for i, c := range ds.Columns {
		if c.Name != wantNames[i] {
			t.Fatalf("column %d = %q, want %q", i, c.Name, wantNames[i])
		}
	}
	kinds := []Kind{KindText, KindInteger, KindFloat, KindText}
	for i, c := range ds.Columns {
		if c.Kind != kinds[i] {
			t.Fatalf("column %q kind = %s, want %s", c.Name, c.Kind, kinds[i])
		}
	}
	bio := ds.Columns[2]
	if !bio.Missing(3) || bio.Missing(0) {
		t.Fatalf("biomass missing mask wrong: %#v", bio.Values)
	}
}

func TestLoadSkipsPreamble(t *testing.T) {
	rows := []string{
		"Fermentation export",
		"Operator: lab 3",
		"time,od,ph",
		"0,0.1,7.0",
		"1,0.2,6.9",
		"2,0.4,6.8",
	}
	ds, err := Load("export.csv", []byte(strings.Join(rows, "\n")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", ds.Rows())
	}
	if ds.Columns[0].Name != "time" || ds.Columns[2].Name != "ph" {
		t.Fatalf("names = %q %q", ds.Columns[0].Name, ds.Columns[2].Name)
	}
}

func TestDetectLayout(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  Layout
	}{
		{"single line", []string{"a,b"}, Layout{0, 1}},
		{"no data line", []string{"a,b", "c,d", "e,f"}, Layout{0, 1}},
		{"data first", []string{"1,2", "3,4"}, Layout{-1, 0}},
		{"adjacent header", []string{"a,b", "1,2"}, Layout{0, 1}},
		{"walk back", []string{"x,y,z", "1,b,c", "1,2,3"}, Layout{0, 2}},
		{"no header found", []string{"1,b,c", "1,2,3"}, Layout{-1, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectLayout(tc.lines, MaxScanLines)
			if got != tc.want {
				t.Fatalf("layout = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestLoadGeneratesNamesWithoutHeader(t *testing.T) {
	ds, err := Load("raw.csv", []byte("1,2,3\n4,5,6\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, want := range []string{"Column_1", "Column_2", "Column_3"} {
		if ds.Columns[i].Name != want {
			t.Fatalf("column %d = %q, want %q", i, ds.Columns[i].Name, want)
		}
	}
	if ds.Rows() != 2 {
		t.Fatalf("rows = %d", ds.Rows())
	}
}

func TestLoadNonAdjacentHeader(t *testing.T) {
	rows := []string{
		`"t","v","w"`,
		"1,x,y",
		"1,2,3",
		"2,3,4",
	}
	ds, err := Load("gap.csv", []byte(strings.Join(rows, "\n")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Columns[0].Name != "t" || ds.Columns[1].Name != "v" {
		t.Fatalf("names = %q %q", ds.Columns[0].Name, ds.Columns[1].Name)
	}
	if ds.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", ds.Rows())
	}
}

func TestLoadRejections(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		reason string
	}{
		{"header only", "a,b\n", "Dataset is empty"},
		{"single column", "a\n1\n2\n", "Dataset must have at least 2 columns"},
		{"ragged", "a,b\n1,2\n1,2,3\n", "Failed to parse CSV"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load("x.csv", []byte(tc.body))
			if err == nil {
				t.Fatalf("expected rejection")
			}
			if !errors.Is(err, ErrRejected) {
				t.Fatalf("error %v does not match ErrRejected", err)
			}
			var re *RejectError
			if !errors.As(err, &re) || !strings.HasPrefix(re.Reason, tc.reason) {
				t.Fatalf("reason = %v, want prefix %q", err, tc.reason)
			}
		})
	}
	if err := CheckName("data.xlsx"); !errors.Is(err, ErrRejected) {
		t.Fatalf("CheckName xlsx = %v", err)
	}
	if err := CheckName("data.csv"); err != nil {
		t.Fatalf("CheckName csv = %v", err)
	}
}

func TestLoadLatin1Fallback(t *testing.T) {
	body := []byte("Temp \xb0C,Value\n1,2\n3,4\n")
	ds, err := Load("latin.csv", body)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Columns[0].Name != "Temp °C" {
		t.Fatalf("decoded name = %q", ds.Columns[0].Name)
	}
}

func TestShortRowsPaddedAndNATokens(t *testing.T) {
	ds, err := Load("pad.csv", []byte("a,b,c\n1,NA,2\n2\n3,4,None\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := ds.Columns[1]
	if b.Kind != KindFloat {
		t.Fatalf("b kind = %s, want float", b.Kind)
	}
	if !math.IsNaN(b.Values[0]) || !math.IsNaN(b.Values[1]) || b.Values[2] != 4 {
		t.Fatalf("b values = %#v", b.Values)
	}
	c := ds.Columns[2]
	if c.Kind != KindFloat || c.Values[0] != 2 || c.Raw[1] != "" || c.Raw[2] != "" {
		t.Fatalf("c = %s %#v", c.Kind, c.Raw)
	}
}

func TestFixNames(t *testing.T) {
	got := fixNames([]string{" x ", "x", "", "x", "x.1"})
	want := []string{"x", "x.1", "Unnamed: 2", "x.2", "x.1.1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %#v, want %#v", got, want)
		}
	}
}

func TestCoerceNumeric(t *testing.T) {
	ds := New("m", []string{"mixed", "words"}, [][]string{
		{"1", "a"}, {"2", "b"}, {"oops", "c"}, {"4", "4"},
	})
	mixed, words := ds.Columns[0], ds.Columns[1]
	if mixed.Kind != KindText {
		t.Fatalf("mixed kind before = %s", mixed.Kind)
	}
	if !ds.CoerceNumeric(mixed, 0.5) {
		t.Fatalf("mixed should coerce")
	}
	if mixed.Kind != KindFloat || !math.IsNaN(mixed.Values[2]) {
		t.Fatalf("mixed after = %s %#v", mixed.Kind, mixed.Values)
	}
	if ds.CoerceNumeric(words, 0.5) {
		t.Fatalf("words should stay text")
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		1:      "1.0",
		2.5:    "2.5",
		-3:     "-3.0",
		1e-5:   "1e-05",
		0.5:    "0.5",
		1e16:   "1e+16",
	}
	for in, want := range cases {
		if got := FormatFloat(in); got != want {
			t.Fatalf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}
