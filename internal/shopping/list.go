// Package shopping implements the per-user shopping list: item lifecycle
// and the counters shown on the popup badge. Lists are plain slices; the
// store owns persistence.
package shopping

import "time"

// Item is one shopping list entry. IDs derive from the creation
// timestamp, matching the ids minted by the companion web app.
type Item struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Checked bool      `json:"checked"`
	AddedAt time.Time `json:"addedAt"`
}

// Stats are the list counters surfaced in the popup badge.
type Stats struct {
	Total   int `json:"total"`
	Checked int `json:"checked"`
}

// NewItem creates an unchecked item stamped with the given time.
func NewItem(text string, now time.Time) Item {
	return Item{
		ID:      now.UnixMilli(),
		Text:    text,
		Checked: false,
		AddedAt: now,
	}
}

// Add appends a new item to the list.
func Add(list []Item, text string, now time.Time) []Item {
	return append(list, NewItem(text, now))
}

// Toggle flips the checked state of the item with the given id. Unknown
// ids leave the list unchanged.
func Toggle(list []Item, id int64) []Item {
	for i := range list {
		if list[i].ID == id {
			list[i].Checked = !list[i].Checked
		}
	}
	return list
}

// Remove deletes the item with the given id. The input slice is left
// intact; callers keep it around for resync after a failed push.
func Remove(list []Item, id int64) []Item {
	out := make([]Item, 0, len(list))
	for _, item := range list {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// ClearChecked removes every checked item without touching the input
// slice.
func ClearChecked(list []Item) []Item {
	out := make([]Item, 0, len(list))
	for _, item := range list {
		if !item.Checked {
			out = append(out, item)
		}
	}
	return out
}

// Tally computes the badge counters for a list.
func Tally(list []Item) Stats {
	stats := Stats{Total: len(list)}
	for _, item := range list {
		if item.Checked {
			stats.Checked++
		}
	}
	return stats
}
