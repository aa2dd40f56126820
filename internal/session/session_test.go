package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
)

func sessionTable() *table.Table {
	t := table.New([]string{"participant_id", "Visit", "SWLS01"})
	t.AppendRow(table.Row{"participant_id": "P1", "Visit": "1", "SWLS01": "3"})
	t.AppendRow(table.Row{"participant_id": "P2", "Visit": "2", "SWLS01": "4"})
	t.AppendRow(table.Row{"participant_id": "P3", "Visit": " 1 ", "SWLS01": "5"})
	return t
}

func TestDetectSessions(t *testing.T) {
	col, sessions := DetectSessions(sessionTable())
	assert.Equal(t, "Visit", col)
	assert.Equal(t, []string{"1", "2"}, sessions)

	_, sessions = DetectSessions(table.New([]string{"id", "SWLS01"}))
	assert.Nil(t, sessions)
}

func TestFilterExactMatch(t *testing.T) {
	out, err := Filter(sessionTable(), "1", convert.DuplicateError, convert.NewWarnings())
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestFilterZeroMatchesIsFatal(t *testing.T) {
	_, err := Filter(sessionTable(), "9", convert.DuplicateError, convert.NewWarnings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSessionEmpty))
	assert.Contains(t, err.Error(), "1, 2")
}

func TestFilterAllKeepsEverything(t *testing.T) {
	out, err := Filter(sessionTable(), convert.SessionAll, convert.DuplicateError, convert.NewWarnings())
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

func TestFilterAutoPreviewsFirstSession(t *testing.T) {
	warnings := convert.NewWarnings()
	out, err := Filter(sessionTable(), "", convert.DuplicateError, warnings)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	require.Len(t, warnings.General, 1)
	assert.Contains(t, warnings.General[0], "previewing session \"1\"")
}

func TestFilterNoAutoPreviewForSessionsPolicy(t *testing.T) {
	warnings := convert.NewWarnings()
	out, err := Filter(sessionTable(), "", convert.DuplicateSessions, warnings)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
	assert.Empty(t, warnings.General)
}

func dupTable() *table.Table {
	t := table.New([]string{"participant_id", "SWLS01"})
	t.AppendRow(table.Row{"participant_id": "P1", "SWLS01": "1"})
	t.AppendRow(table.Row{"participant_id": "P1", "SWLS01": "2"})
	t.AppendRow(table.Row{"participant_id": "P2", "SWLS01": "3"})
	t.AppendRow(table.Row{"participant_id": "P1", "SWLS01": "4"})
	return t
}

func TestHandleDuplicatesError(t *testing.T) {
	_, _, err := HandleDuplicates(dupTable(), "participant_id", convert.DuplicateError, convert.NewWarnings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicateIDs))
	assert.Contains(t, err.Error(), "P1")
}

func TestHandleDuplicatesKeepFirst(t *testing.T) {
	warnings := convert.NewWarnings()
	out, _, err := HandleDuplicates(dupTable(), "participant_id", convert.DuplicateKeepFirst, warnings)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "1", out.Rows[0]["SWLS01"])
	assert.Equal(t, "3", out.Rows[1]["SWLS01"])
	require.Len(t, warnings.General, 1)
}

func TestHandleDuplicatesKeepLast(t *testing.T) {
	out, _, err := HandleDuplicates(dupTable(), "participant_id", convert.DuplicateKeepLast, convert.NewWarnings())
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "3", out.Rows[0]["SWLS01"])
	assert.Equal(t, "4", out.Rows[1]["SWLS01"])
}

func TestHandleDuplicatesSessionsPolicy(t *testing.T) {
	src := dupTable()
	out, sesCol, err := HandleDuplicates(src, "participant_id", convert.DuplicateSessions, convert.NewWarnings())
	require.NoError(t, err)

	// No rows dropped, per-ID counter becomes the synthetic session.
	assert.Equal(t, convert.DupSessionColumn, sesCol)
	assert.Equal(t, 4, out.Len())
	assert.Equal(t, "1", out.Rows[0][convert.DupSessionColumn])
	assert.Equal(t, "2", out.Rows[1][convert.DupSessionColumn])
	assert.Equal(t, "1", out.Rows[2][convert.DupSessionColumn])
	assert.Equal(t, "3", out.Rows[3][convert.DupSessionColumn])

	// Source table untouched.
	assert.False(t, src.HasColumn(convert.DupSessionColumn))
}

func TestHandleDuplicatesNoDuplicatesPassThrough(t *testing.T) {
	tab := table.New([]string{"participant_id"})
	tab.AppendRow(table.Row{"participant_id": "P1"})
	out, sesCol, err := HandleDuplicates(tab, "participant_id", convert.DuplicateError, convert.NewWarnings())
	require.NoError(t, err)
	assert.Equal(t, "", sesCol)
	assert.Equal(t, 1, out.Len())
}
