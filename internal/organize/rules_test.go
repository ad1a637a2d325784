package organize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileOne(t *testing.T, rule TagRule, table *LookupTable) []CompiledRule {
	t.Helper()
	compiled, err := CompileRules([]TagRule{rule}, table)
	require.NoError(t, err)
	return compiled
}

// TestCompileRulesErrors tests load-time rejection of bad rules
func TestCompileRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		rule TagRule
	}{
		{
			name: "missing name",
			rule: TagRule{Pattern: "([0-9]+)"},
		},
		{
			name: "value and pattern together",
			rule: TagRule{Name: "day", Value: "01", Pattern: "([0-9]+)"},
		},
		{
			name: "pattern without capturing group",
			rule: TagRule{Name: "day", Pattern: "[0-9]+"},
		},
		{
			name: "pattern with two capturing groups",
			rule: TagRule{Name: "day", Pattern: "(day)([0-9]+)"},
		},
		{
			name: "pattern does not compile",
			rule: TagRule{Name: "day", Pattern: "([0-9"},
		},
		{
			name: "unknown case transform",
			rule: TagRule{Name: "day", Pattern: "([0-9]+)", Case: "title"},
		},
		{
			name: "replace without map file",
			rule: TagRule{Name: "day", Pattern: "([0-9]+)", Replace: &ReplaceRule{From: "a", To: "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRules([]TagRule{tt.rule}, nil)
			assert.Error(t, err)
		})
	}
}

// TestInferTagsPipelineOrder tests the capture, length-check and
// iffy-prefix stages feeding one another in order.
func TestInferTagsPipelineOrder(t *testing.T) {
	rules := compileOne(t, TagRule{
		Name:       "day",
		Pattern:    "day([0-9]+)_",
		Length:     2,
		IffyPrefix: "0",
	}, nil)

	tags, unresolved := InferTags("day1_g1.npy", rules)
	assert.Empty(t, unresolved)
	assert.Equal(t, map[string]string{"day": "01"}, tags)
}

// TestInferTagsStages tests the individual pipeline stages
func TestInferTagsStages(t *testing.T) {
	tests := []struct {
		name       string
		rule       TagRule
		path       string
		want       string
		unresolved bool
	}{
		{
			name: "fixed value",
			rule: TagRule{Name: "site", Value: "blr"},
			path: "whatever.dat",
			want: "blr",
		},
		{
			name: "capture takes last match",
			rule: TagRule{Name: "num", Pattern: "([0-9]+)"},
			path: "run12/seg34.dat",
			want: "34",
		},
		{
			name: "prepend after capture",
			rule: TagRule{Name: "subject", Pattern: "sub([0-9]+)", Prepend: "s"},
			path: "sub42.dat",
			want: "s42",
		},
		{
			name: "default fills missing capture",
			rule: TagRule{Name: "day", Pattern: "day([0-9]+)", Default: "01"},
			path: "nothing-here.dat",
			want: "01",
		},
		{
			name:       "no capture and no default is unresolved",
			rule:       TagRule{Name: "day", Pattern: "day([0-9]+)"},
			path:       "nothing-here.dat",
			unresolved: true,
		},
		{
			name: "lower case fold",
			rule: TagRule{Name: "mice", Pattern: "(G[0-9]+)", Case: "lower"},
			path: "G7.dat",
			want: "g7",
		},
		{
			name: "upper case fold",
			rule: TagRule{Name: "mice", Pattern: "(g[0-9]+)", Case: "upper"},
			path: "g7.dat",
			want: "G7",
		},
		{
			name:       "length mismatch without repair discards",
			rule:       TagRule{Name: "day", Pattern: "day([0-9]+)", Length: 2},
			path:       "day1.dat",
			unresolved: true,
		},
		{
			name:       "iffy prefix failing recheck discards",
			rule:       TagRule{Name: "day", Pattern: "day([0-9]+)", Length: 3, IffyPrefix: "0"},
			path:       "day1.dat",
			unresolved: true,
		},
		{
			name: "pad left with default char",
			rule: TagRule{Name: "day", Pattern: "day([0-9]+)", Pad: &PadRule{Length: 3}},
			path: "day7.dat",
			want: "007",
		},
		{
			name: "pad right with char",
			rule: TagRule{Name: "run", Pattern: "run([a-z]+)", Pad: &PadRule{Length: 4, Char: "x", Direction: "right"}},
			path: "runab.dat",
			want: "abxx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := compileOne(t, tt.rule, nil)
			tags, unresolved := InferTags(tt.path, rules)
			if tt.unresolved {
				assert.Equal(t, []string{tt.rule.Name}, unresolved)
				assert.NotContains(t, tags, tt.rule.Name)
				return
			}
			assert.Empty(t, unresolved)
			assert.Equal(t, tt.want, tags[tt.rule.Name])
		})
	}
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestInferTagsReplace tests the lookup-replace stage
func TestInferTagsReplace(t *testing.T) {
	table, err := LoadLookupTable(writeCSV(t, "old,new\nG1,mouse-01\nG2,mouse-02\n"))
	require.NoError(t, err)

	rules := compileOne(t, TagRule{
		Name:    "mice",
		Pattern: "(G[0-9]+)",
		Replace: &ReplaceRule{From: "old", To: "new"},
	}, table)

	tags, unresolved := InferTags("G2_day1.npy", rules)
	assert.Empty(t, unresolved)
	assert.Equal(t, "mouse-02", tags["mice"])

	// Strict lookup discards values without a mapping.
	tags, unresolved = InferTags("G9_day1.npy", rules)
	assert.Equal(t, []string{"mice"}, unresolved)
	assert.NotContains(t, tags, "mice")
}

// TestInferTagsReplaceLenient tests non-strict lookup retention
func TestInferTagsReplaceLenient(t *testing.T) {
	table, err := LoadLookupTable(writeCSV(t, "old,new\nG1,mouse-01\n"))
	require.NoError(t, err)

	rules := compileOne(t, TagRule{
		Name:    "mice",
		Pattern: "(G[0-9]+)",
		Replace: &ReplaceRule{From: "old", To: "new", Lenient: true},
	}, table)

	tags, unresolved := InferTags("G9_day1.npy", rules)
	assert.Empty(t, unresolved)
	assert.Equal(t, "G9", tags["mice"])
}

// TestLookupTable tests CSV loading and the one-to-one contract
func TestLookupTable(t *testing.T) {
	table, err := LoadLookupTable(writeCSV(t, "old,new\nG1,mouse-01\nG1,mouse-01\n"))
	require.NoError(t, err)

	// A repeated identical row is still one-to-one.
	m, err := table.Mapping("old", "new")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"G1": "mouse-01"}, m)

	// Unknown columns are config errors.
	_, err = table.Mapping("missing", "new")
	assert.Error(t, err)

	// A key mapping to two values violates one-to-one.
	table, err = LoadLookupTable(writeCSV(t, "old,new\nG1,a\nG1,b\n"))
	require.NoError(t, err)
	_, err = table.Mapping("old", "new")
	assert.Error(t, err)

	_, err = LoadLookupTable(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
