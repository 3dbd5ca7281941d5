// Package export serializes the mapping table for hand-off to users.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/scmtools/textveil/internal/engine"
)

// utf8BOM lets Excel detect the encoding when opening the file directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteMappingCSV writes the mapping table to w: header row, one row per
// entry, rows sorted ascending by pseudonym. The type column is derived
// from the pseudonym prefix rather than the entry kind so the exported file
// stays faithful to the pseudonyms it names.
func WriteMappingCSV(w io.Writer, m *engine.Mapping) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	entries := make([]*engine.Entry, len(m.Entries()))
	copy(entries, m.Entries())
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Pseudonym < entries[j].Pseudonym
	})

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write([]string{"original", "anonymized", "type", "occurrences"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range entries {
		kind := "keyword"
		if strings.HasPrefix(e.Pseudonym, "NUM_") {
			kind = "numeric"
		}
		row := []string{e.Original, e.Pseudonym, kind, strconv.Itoa(e.Occurrences)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", e.Original, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMappingCSVFile writes the mapping table to a new file at path.
func WriteMappingCSVFile(path string, m *engine.Mapping) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteMappingCSV(f, m); err != nil {
		return err
	}
	return f.Close()
}
