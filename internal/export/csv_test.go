package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/scmtools/textveil/internal/engine"
)

func TestWriteMappingCSV(t *testing.T) {
	m := engine.NewMapping()
	m.Set("minji", "B", engine.KindKeyword, 2)
	m.Set("kim", "A", engine.KindKeyword, 3)
	m.Set("12,000", "NUM_1", engine.KindNumeric, 1)

	var buf bytes.Buffer
	if err := WriteMappingCSV(&buf, m); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	t.Run("StartsWithBOM", func(t *testing.T) {
		if !strings.HasPrefix(out, "\uFEFF") {
			t.Error("output missing UTF-8 BOM")
		}
	})

	t.Run("HeaderAndSortOrder", func(t *testing.T) {
		lines := strings.Split(strings.TrimRight(strings.TrimPrefix(out, "\uFEFF"), "\r\n"), "\r\n")
		if len(lines) != 4 {
			t.Fatalf("got %d lines: %q", len(lines), lines)
		}
		if lines[0] != "original,anonymized,type,occurrences" {
			t.Errorf("header = %q", lines[0])
		}
		// Ascending by pseudonym: A, B, NUM_1.
		if !strings.HasPrefix(lines[1], "kim,A,") ||
			!strings.HasPrefix(lines[2], "minji,B,") ||
			!strings.HasPrefix(lines[3], "\"12,000\",NUM_1,") {
			t.Errorf("rows out of order: %q", lines[1:])
		}
	})

	t.Run("TypeDerivedFromPseudonym", func(t *testing.T) {
		if !strings.Contains(out, "kim,A,keyword,3") {
			t.Errorf("keyword row wrong: %q", out)
		}
		if !strings.Contains(out, "\"12,000\",NUM_1,numeric,1") {
			t.Errorf("numeric row wrong: %q", out)
		}
	})
}

func TestWriteMappingCSVEmptyMapping(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMappingCSV(&buf, engine.NewMapping()); err != nil {
		t.Fatal(err)
	}
	want := "\uFEFForiginal,anonymized,type,occurrences\r\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
