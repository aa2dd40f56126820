package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/library"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/subject"
)

const swlsTemplate = `{
	"Study": {"TaskName": "swls"},
	"SWLS01": {
		"Description": "Satisfied with life",
		"Levels": {"1": "strongly disagree", "2": "disagree", "3": "slightly disagree",
			"4": "neutral", "5": "slightly agree", "6": "agree", "7": "strongly agree"}
	},
	"SWLS02": {
		"Description": "Conditions are excellent",
		"Levels": {"1": "strongly disagree", "2": "disagree", "3": "slightly disagree",
			"4": "neutral", "5": "slightly agree", "6": "agree", "7": "strongly agree"}
	}
}`

func writeTemplateDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestService(t *testing.T, templateDir string) *ConverterService {
	t.Helper()
	loader := &library.Loader{}
	resolver := &subject.Resolver{Suggester: &subject.LevenshteinSuggester{}}
	return NewConverterService(loader, resolver, nil, templateDir, "")
}

func inputTable(columns []string, cells ...[]string) *table.Table {
	t := table.New(columns)
	for _, row := range cells {
		r := make(table.Row, len(columns))
		for i, col := range columns {
			if i < len(row) {
				r[col] = row[i]
			}
		}
		t.AppendRow(r)
	}
	return t
}

func TestConvertRunAwareScenario(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "SWLS01", "SWLS02run02"},
		[]string{"P1", "4", "5"},
		[]string{"P2", "3", "n/a"},
	)

	result, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
	})
	require.NoError(t, err)

	assert.Equal(t, []core.TaskName{"swls"}, result.TasksWithData)

	out := result.Tables["swls"]
	require.NotNil(t, out)
	assert.Equal(t, []string{"participant_id", "run", "SWLS01", "SWLS02"}, out.Columns)
	require.Equal(t, 4, out.Len())

	// Row order: input row then run. Bare columns are run 1.
	assert.Equal(t, "P1", out.Rows[0]["participant_id"])
	assert.Equal(t, "1", out.Rows[0]["run"])
	assert.Equal(t, "4", out.Rows[0]["SWLS01"])
	assert.Equal(t, table.MissingToken, out.Rows[0]["SWLS02"])

	assert.Equal(t, "2", out.Rows[1]["run"])
	assert.Equal(t, "5", out.Rows[1]["SWLS02"])

	assert.Equal(t, "P2", out.Rows[3]["participant_id"])
	assert.Equal(t, "2", out.Rows[3]["run"])
	assert.Equal(t, table.MissingToken, out.Rows[3]["SWLS02"])
}

func TestConvertRecordsToleranceAcceptances(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "SWLS01"},
		[]string{"P1", "4.5"},
	)

	result, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"SWLS01"}, result.Tolerance["swls"])
	assert.Equal(t, "4.5", result.Tables["swls"].Rows[0]["SWLS01"])
}

func TestConvertRejectsOutOfBandValue(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "SWLS01"},
		[]string{"P1", "9"},
	)

	result, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, core.ErrValueRejected)
}

func TestConvertDuplicateErrorPolicyAborts(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "SWLS01"},
		[]string{"P1", "4"},
		[]string{"P1", "5"},
	)

	_, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateIDs)
}

func TestConvertDuplicateSessionsPolicyExpandsRows(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "SWLS01"},
		[]string{"P1", "4"},
		[]string{"P1", "5"},
		[]string{"P1", "6"},
	)

	result, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
		Options:    convert.Options{Duplicates: convert.DuplicateSessions},
	})
	require.NoError(t, err)

	out := result.Tables["swls"]
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"participant_id", "session", "SWLS01"}, out.Columns)
	assert.Equal(t, "1", out.Rows[0]["session"])
	assert.Equal(t, "2", out.Rows[1]["session"])
	assert.Equal(t, "3", out.Rows[2]["session"])
}

func TestConvertSessionAutoFilterPreviewsFirst(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "session", "SWLS01"},
		[]string{"P1", "1", "4"},
		[]string{"P1", "2", "5"},
	)

	result, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, result.DetectedSessions)
	out := result.Tables["swls"]
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "1", out.Rows[0]["session"])
	assert.Equal(t, "4", out.Rows[0]["SWLS01"])

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "previewing session") {
			found = true
		}
	}
	assert.True(t, found, "expected session preview warning, got %v", result.Warnings)
}

func TestConvertNoMatchingTasksFatal(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "UNKNOWN01"},
		[]string{"P1", "4"},
	)

	_, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoTasksMatched)
}

func TestConvertResolvesSubjectIDMap(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{"survey-swls.json": swlsTemplate})
	svc := newTestService(t, dir)

	in := inputTable([]string{"ID", "SWLS01"},
		[]string{"AB 12", "4"},
	)

	result, err := svc.Convert(context.Background(), ConvertRequest{
		SourceFile: "export.csv",
		Table:      in,
		Options: convert.Options{
			IDMap:       map[string]string{"ab12": "sub-001"},
			IDMapSource: "participants.tsv",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-001", result.Tables["swls"].Rows[0]["participant_id"])
}
