package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
)

func TestReadTableCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	content := "ID,SWLS01,SWLS02\nP1,4,5\nP2,3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tab, err := NewDataReader(path).ReadTable()
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "SWLS01", "SWLS02"}, tab.Columns)
	require.Equal(t, 2, tab.Len())
	assert.Equal(t, "4", tab.Rows[0]["SWLS01"])
	// Short rows leave trailing cells empty.
	assert.Equal(t, "", tab.Rows[1]["SWLS02"])
}

func TestReadTableTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.tsv")
	content := "ID\tSWLS01\nP1\tvalue, with comma\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tab, err := NewDataReader(path).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, "value, with comma", tab.Rows[0]["SWLS01"])
}

func TestReadTableMissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "absent.csv")).ReadTable()
	assert.Error(t, err)
}

func TestWriteTask(t *testing.T) {
	dir := t.TempDir()
	tab := table.New([]string{"participant_id", "SWLS01"})
	tab.AppendRow(table.Row{"participant_id": "P1", "SWLS01": "4"})
	tab.AppendRow(table.Row{"participant_id": "P2", "SWLS01": ""})

	path, err := (&Writer{Dir: dir}).WriteTask("swls", tab)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "task-swls_survey.tsv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "participant_id\tSWLS01", lines[0])
	assert.Equal(t, "P1\t4", lines[1])
	// Missing cells are written as the missing token.
	assert.Equal(t, "P2\t"+table.MissingToken, lines[2])
}
