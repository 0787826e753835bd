package shopping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	item := NewItem("farine", now)

	assert.Equal(t, now.UnixMilli(), item.ID)
	assert.Equal(t, "farine", item.Text)
	assert.False(t, item.Checked)
	assert.Equal(t, now, item.AddedAt)
}

func TestListLifecycle(t *testing.T) {
	now := time.Now()
	list := []Item{}
	list = Add(list, "farine", now)
	list = Add(list, "oeufs", now.Add(time.Second))
	list = Add(list, "lait", now.Add(2*time.Second))
	require.Len(t, list, 3)

	list = Toggle(list, list[0].ID)
	list = Toggle(list, list[2].ID)
	assert.Equal(t, Stats{Total: 3, Checked: 2}, Tally(list))

	// Toggling back unchecks.
	list = Toggle(list, list[2].ID)
	assert.Equal(t, Stats{Total: 3, Checked: 1}, Tally(list))

	// Unknown ids are a no-op.
	list = Toggle(list, 424242)
	assert.Equal(t, Stats{Total: 3, Checked: 1}, Tally(list))

	list = Remove(list, list[1].ID)
	require.Len(t, list, 2)
	assert.Equal(t, "farine", list[0].Text)
	assert.Equal(t, "lait", list[1].Text)

	list = ClearChecked(list)
	require.Len(t, list, 1)
	assert.Equal(t, "lait", list[0].Text)

	assert.Equal(t, Stats{Total: 1, Checked: 0}, Tally(list))
}

func TestFiltersLeaveInputIntact(t *testing.T) {
	now := time.Now()
	list := []Item{
		{ID: 1, Text: "farine", AddedAt: now},
		{ID: 2, Text: "lait", Checked: true, AddedAt: now},
		{ID: 3, Text: "sel", AddedAt: now},
	}
	original := append([]Item(nil), list...)

	removed := Remove(list, 2)
	require.Len(t, removed, 2)
	assert.Equal(t, original, list)

	cleared := ClearChecked(list)
	require.Len(t, cleared, 2)
	assert.Equal(t, original, list)
}

func TestClearCheckedEmpty(t *testing.T) {
	assert.Empty(t, ClearChecked([]Item{}))
	assert.Equal(t, Stats{}, Tally(nil))
}
