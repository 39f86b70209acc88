package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbox/internal/store"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "reminders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestLoadFromEmptyDatabase(t *testing.T) {
	d := openTemp(t)
	reminders, nextID, err := d.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, reminders)
	assert.Equal(t, 1, nextID)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d := openTemp(t)
	in := []store.Reminder{
		{ID: 1, Date: "2025-01-10", Hour: 7, Minute: 30, Content: "UONG THUOC", Status: store.StatusPending},
		{ID: 3, Date: "2000-01-01", Hour: 9, Minute: 0, Content: "daily", Status: store.StatusRepeat},
	}
	require.NoError(t, d.SaveAll(in, 4))

	out, nextID, err := d.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 4, nextID)
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	d := openTemp(t)
	require.NoError(t, d.SaveAll([]store.Reminder{
		{ID: 1, Date: "2025-01-10", Hour: 7, Content: "a", Status: store.StatusPending},
		{ID: 2, Date: "2025-01-11", Hour: 8, Content: "b", Status: store.StatusPending},
	}, 3))
	require.NoError(t, d.SaveAll([]store.Reminder{
		{ID: 2, Date: "2025-01-11", Hour: 8, Content: "b", Status: store.StatusCompleted},
	}, 3))

	out, nextID, err := d.LoadAll()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].ID)
	assert.Equal(t, store.StatusCompleted, out[0].Status)
	assert.Equal(t, 3, nextID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.db")
	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d.SaveAll([]store.Reminder{
		{ID: 1, Date: "2025-01-10", Hour: 7, Minute: 30, Content: "x", Status: store.StatusPending},
	}, 2))
	require.NoError(t, d.Close())

	d2, err := Open(path)
	require.NoError(t, err)
	defer d2.Close()
	out, nextID, err := d2.LoadAll()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].Content)
	assert.Equal(t, 2, nextID)
}
