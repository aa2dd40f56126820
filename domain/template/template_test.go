package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestItemSchemaPredicates(t *testing.T) {
	item := &ItemSchema{
		Levels:   map[string]string{"1": "Disagree", "5": "Agree", "x": "Other"},
		MinValue: f64(1),
	}

	assert.True(t, item.HasLevels())
	assert.False(t, item.HasNumericRange())

	item.MaxValue = f64(5)
	assert.True(t, item.HasNumericRange())

	assert.Equal(t, []string{"1", "5", "x"}, item.LevelKeys())
	assert.Equal(t, []float64{1, 5}, item.NumericLevelKeys())
}

func TestExpectedItemsSkipsReservedAndAliases(t *testing.T) {
	tpl := &SurveyTemplate{
		Task: "swls",
		Items: map[string]*ItemSchema{
			"SWLS01": {},
			"SWLS02": {},
			"LZ01":   {AliasOf: "SWLS01"},
		},
		Aliases:        map[string]string{"LZ01": "SWLS01"},
		ReverseAliases: map[string][]string{"SWLS01": {"LZ01"}},
	}

	assert.Equal(t, []string{"SWLS01", "SWLS02"}, tpl.ExpectedItems())
	assert.Equal(t, []string{"SWLS01", "LZ01"}, tpl.Candidates("SWLS01"))
	assert.Same(t, tpl.Items["SWLS01"], tpl.Item("LZ01"))
}

func TestDiffItemSets(t *testing.T) {
	mine := &SurveyTemplate{Items: map[string]*ItemSchema{"A": {}, "B": {}, "C": {}}}
	ref := &SurveyTemplate{Items: map[string]*ItemSchema{"B": {}, "D": {}}}

	added, removed := DiffItemSets(mine, ref)
	assert.Equal(t, []string{"A", "C"}, added)
	assert.Equal(t, []string{"D"}, removed)
}

func TestFormatIDListCap(t *testing.T) {
	assert.Equal(t, "a, b", FormatIDList([]string{"a", "b"}))
	long := []string{"a", "b", "c", "d", "e", "f", "g"}
	assert.Equal(t, "a, b, c, d, e, +2 more", FormatIDList(long))
}

func TestReservedKeys(t *testing.T) {
	assert.True(t, IsReservedKey("Study"))
	assert.True(t, IsReservedKey("Normative"))
	assert.False(t, IsReservedKey("SWLS01"))
	assert.Len(t, ReservedKeys(), 6)
}
