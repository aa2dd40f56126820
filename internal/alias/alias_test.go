package alias

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/template"
)

func TestParseSkipsCommentsAndHeader(t *testing.T) {
	input := strings.Join([]string{
		"canonical\talias",
		"# mapping maintained by the lab",
		"",
		"SWLS01\tLZ01 zufrieden01",
		"SWLS02\tLZ02",
	}, "\n")

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "SWLS01", entries[0].Canonical)
	assert.Equal(t, []string{"LZ01", "zufrieden01"}, entries[0].Aliases)
}

func TestParseRejectsEntryWithoutAliases(t *testing.T) {
	_, err := Parse(strings.NewReader("SWLS01"))
	assert.Error(t, err)
}

func TestBuildAliasMapSelfMapsCanonicals(t *testing.T) {
	m, err := BuildAliasMap([]Entry{{Canonical: "A", Aliases: []string{"x", "y"}}})
	require.NoError(t, err)
	assert.Equal(t, "A", m["A"])
	assert.Equal(t, "A", m["x"])
	assert.Equal(t, "A", m["y"])
}

func TestBuildAliasMapConflictIsFatal(t *testing.T) {
	_, err := BuildAliasMap([]Entry{
		{Canonical: "A", Aliases: []string{"x"}},
		{Canonical: "B", Aliases: []string{"x"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "B")
}

func TestBuildCanonicalAliases(t *testing.T) {
	groups := BuildCanonicalAliases([]Entry{
		{Canonical: "A", Aliases: []string{"x", "y"}},
		{Canonical: "A", Aliases: []string{"y", "z", "A"}},
	})
	assert.Equal(t, []string{"x", "y", "z"}, groups["A"])
}

func TestApplyAliasMapMergesAndRenames(t *testing.T) {
	tab := table.New([]string{"ID", "LZ01", "zufrieden01", "LZ02"})
	tab.AppendRow(table.Row{"ID": "P1", "LZ01": "4", "zufrieden01": "9", "LZ02": "2"})
	tab.AppendRow(table.Row{"ID": "P2", "LZ01": "", "zufrieden01": "3", "LZ02": ""})

	aliasMap, err := BuildAliasMap([]Entry{
		{Canonical: "SWLS01", Aliases: []string{"LZ01", "zufrieden01"}},
		{Canonical: "SWLS02", Aliases: []string{"LZ02"}},
	})
	require.NoError(t, err)

	out, err := ApplyAliasMap(tab, aliasMap)
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "SWLS01", "SWLS02"}, out.Columns)
	assert.Equal(t, "4", out.Rows[0]["SWLS01"]) // first non-missing wins
	assert.Equal(t, "3", out.Rows[1]["SWLS01"])
	assert.Equal(t, "2", out.Rows[0]["SWLS02"]) // single source renamed in place

	// Input table untouched.
	assert.Equal(t, []string{"ID", "LZ01", "zufrieden01", "LZ02"}, tab.Columns)
}

func TestApplyAliasMapIsIdempotent(t *testing.T) {
	tab := table.New([]string{"LZ01", "SWLS02"})
	tab.AppendRow(table.Row{"LZ01": "1", "SWLS02": "2"})

	aliasMap, err := BuildAliasMap([]Entry{
		{Canonical: "SWLS01", Aliases: []string{"LZ01"}},
		{Canonical: "SWLS02", Aliases: []string{"LZ02"}},
	})
	require.NoError(t, err)

	once, err := ApplyAliasMap(tab, aliasMap)
	require.NoError(t, err)
	twice, err := ApplyAliasMap(once, aliasMap)
	require.NoError(t, err)

	assert.Equal(t, once.Columns, twice.Columns)
	assert.Equal(t, once.Rows, twice.Rows)
}

func TestCanonicalizeTemplateItems(t *testing.T) {
	tpl := &template.SurveyTemplate{
		Items: map[string]*template.ItemSchema{
			"SWLS01": {Description: "canonical def"},
			"LZ01":   {Description: "alias def"},
			"LZ02":   {Description: "promoted def"},
		},
	}

	CanonicalizeTemplateItems(tpl, map[string][]string{
		"SWLS01": {"LZ01"},
		"SWLS02": {"LZ02"},
	})

	// Alias next to its canonical is discarded, lone alias is promoted.
	assert.Equal(t, "canonical def", tpl.Items["SWLS01"].Description)
	assert.Equal(t, "promoted def", tpl.Items["SWLS02"].Description)
	assert.NotContains(t, tpl.Items, "LZ01")
	assert.NotContains(t, tpl.Items, "LZ02")
}
