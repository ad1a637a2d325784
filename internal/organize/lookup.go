package organize

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/meera/datashelf/internal/spec"
)

// LookupTable is a CSV mapping file loaded once per organization run.
// Replace rules draw one-to-one column mappings from it, so repeated
// lookups never touch the file again and behave deterministically
// within a run.
type LookupTable struct {
	path    string
	columns map[string]int
	rows    [][]string
}

// LoadLookupTable reads a CSV file with a header row. A missing or
// unreadable file is a spec.ConfigError: the rules document referenced
// a table that cannot serve it.
func LoadLookupTable(path string) (*LookupTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &spec.ConfigError{Source: path, Reason: "cannot open map file", Err: err}
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &spec.ConfigError{Source: path, Reason: "cannot parse map file", Err: err}
	}
	if len(records) == 0 {
		return nil, &spec.ConfigError{Source: path, Reason: "map file has no header row"}
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[name] = i
	}

	return &LookupTable{path: path, columns: columns, rows: records[1:]}, nil
}

// Mapping builds the key-to-value map between two named columns. An
// unknown column name or a key mapped to two different values violates
// the one-to-one contract and yields a spec.ConfigError.
func (t *LookupTable) Mapping(from, to string) (map[string]string, error) {
	fi, ok := t.columns[from]
	if !ok {
		return nil, &spec.ConfigError{Source: t.path, Reason: fmt.Sprintf("map file has no column %q", from)}
	}
	ti, ok := t.columns[to]
	if !ok {
		return nil, &spec.ConfigError{Source: t.path, Reason: fmt.Sprintf("map file has no column %q", to)}
	}

	m := make(map[string]string, len(t.rows))
	for _, row := range t.rows {
		if len(row) <= fi || len(row) <= ti {
			continue
		}
		key, val := row[fi], row[ti]
		if prev, dup := m[key]; dup && prev != val {
			return nil, &spec.ConfigError{
				Source: t.path,
				Reason: fmt.Sprintf("key %q maps to both %q and %q", key, prev, val),
			}
		}
		m[key] = val
	}

	return m, nil
}
