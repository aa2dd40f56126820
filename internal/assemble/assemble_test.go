package assemble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/library"
)

func testLibrary() *library.Library {
	return &library.Library{
		ItemToTask: map[string]core.TaskName{
			"SWLS01":  "swls",
			"SWLS02":  "swls",
			"LZ01":    "swls",
			"PANAS01": "panas",
		},
	}
}

func TestMatchColumns(t *testing.T) {
	cols := []string{"id", "submitdate", "SWLS01", "SWLS02run02", "LZ01", "PANAS01_run-01", "unknown99"}
	mapping := MatchColumns(cols, testLibrary())

	assert.Equal(t, convert.Mapping{Task: "swls", Item: "SWLS01", Run: 0}, mapping["SWLS01"])
	assert.Equal(t, convert.Mapping{Task: "swls", Item: "SWLS02", Run: 2}, mapping["SWLS02run02"])
	assert.Equal(t, convert.Mapping{Task: "swls", Item: "LZ01", Run: 0}, mapping["LZ01"])
	assert.Equal(t, convert.Mapping{Task: "panas", Item: "PANAS01", Run: 1}, mapping["PANAS01_run-01"])
	assert.NotContains(t, mapping, "id")
	assert.NotContains(t, mapping, "unknown99")
}

func TestResolveTasksIntersection(t *testing.T) {
	mapping := convert.ColumnMapping{
		"SWLS01":  {Task: "swls", Item: "SWLS01"},
		"PANAS01": {Task: "panas", Item: "PANAS01"},
	}

	libWarnings := convert.NewWarnings()
	libWarnings.Add("swls", "template differs from global")
	libWarnings.Add("panas", "not requested, not surfaced")

	tasks, warnings, err := ResolveTasks(mapping, []string{"SWLS"}, libWarnings)
	require.NoError(t, err)
	assert.Equal(t, []core.TaskName{"swls"}, tasks)
	assert.Len(t, warnings.ByTask["swls"], 1)
	assert.Empty(t, warnings.ByTask["panas"])
}

func TestResolveTasksEmptyIntersectionIsFatal(t *testing.T) {
	mapping := convert.ColumnMapping{"SWLS01": {Task: "swls", Item: "SWLS01"}}
	_, _, err := ResolveTasks(mapping, []string{"bdi"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoTasksMatched))
	assert.Contains(t, err.Error(), "swls")
}

func TestBuildTaskRunColumns(t *testing.T) {
	mapping := convert.ColumnMapping{
		"SWLS01":      {Task: "swls", Item: "SWLS01", Run: 0},
		"SWLS02run02": {Task: "swls", Item: "SWLS02", Run: 2},
		"PANAS01":     {Task: "panas", Item: "PANAS01", Run: 0},
	}

	byTaskRun, colToTask := BuildTaskRunColumns(mapping)
	assert.Equal(t, "SWLS01", byTaskRun["swls"][0]["SWLS01"])
	assert.Equal(t, "SWLS02run02", byTaskRun["swls"][2]["SWLS02"])
	assert.Equal(t, []int{0, 2}, Runs(byTaskRun["swls"]))
	assert.Equal(t, core.TaskName("swls"), colToTask["SWLS02run02"])
	assert.Equal(t, core.TaskName("panas"), colToTask["PANAS01"])
}

func TestBuildTemplateMatches(t *testing.T) {
	cols := []string{"id", "SWLS01", "SWLS02run02", "mystery01"}
	mapping := convert.ColumnMapping{
		"SWLS01":      {Task: "swls", Item: "SWLS01", Run: 0},
		"SWLS02run02": {Task: "swls", Item: "SWLS02", Run: 2},
	}

	matches := BuildTemplateMatches(cols, mapping)
	byGroup := make(map[string]convert.TemplateMatch)
	for _, m := range matches {
		byGroup[m.Group] = m
	}

	require.Contains(t, byGroup, "SWLS01")
	require.NotNil(t, byGroup["SWLS01"].Task)
	assert.Equal(t, core.TaskName("swls"), *byGroup["SWLS01"].Task)
	assert.Nil(t, byGroup["mystery01"].Task)
	// System columns never appear as groups.
	assert.NotContains(t, byGroup, "id")
}
