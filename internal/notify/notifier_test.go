package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeai/companion/internal/logging"
)

type captureSink struct {
	delivered []Notification
}

func (c *captureSink) Notify(n Notification) {
	c.delivered = append(c.delivered, n)
}

func TestShowBroadcastsToAllSinks(t *testing.T) {
	notifier := New(logging.NewNop())
	first := &captureSink{}
	second := &captureSink{}
	notifier.AddSink(first)
	notifier.AddSink(second)

	sent := notifier.Show("✓ Recette sauvegardée", "Tarte aux pommes", "Voir")

	assert.NotEmpty(t, sent.ID)
	assert.False(t, sent.CreatedAt.IsZero())
	assert.Equal(t, []string{"Voir"}, sent.Buttons)

	require.Len(t, first.delivered, 1)
	require.Len(t, second.delivered, 1)
	assert.Equal(t, sent.ID, first.delivered[0].ID)
	assert.Equal(t, "Tarte aux pommes", first.delivered[0].Message)
}

func TestShowWithoutSinksStillReturns(t *testing.T) {
	notifier := New(logging.NewNop())

	sent := notifier.Show("titre", "message")
	assert.Equal(t, "titre", sent.Title)
	assert.Empty(t, sent.Buttons)
}

func TestDistinctIDs(t *testing.T) {
	notifier := New(logging.NewNop())

	a := notifier.Show("a", "a")
	b := notifier.Show("b", "b")
	assert.NotEqual(t, a.ID, b.ID)
}
