package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeai/companion/internal/shopping"
	"github.com/recipeai/companion/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestSetGetRoundtrip(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Set("greeting", "bonjour"))

	var got string
	ok, err := st.Get("greeting", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bonjour", got)
}

func TestGetMissingKey(t *testing.T) {
	st := newTestStore(t)

	var got string
	ok, err := st.Get("absent", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValuesSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	st, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, st.Set(KeyCurrentUser, types.User{ID: 7, Name: "Chef"}))

	reopened, err := New(dir)
	require.NoError(t, err)

	user, ok, err := reopened.CurrentUser()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.User{ID: 7, Name: "Chef"}, user)
}

func TestCurrentUserAbsent(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.CurrentUser()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthToken(t *testing.T) {
	st := newTestStore(t)

	token, err := st.AuthToken()
	require.NoError(t, err)
	assert.Equal(t, "", token)

	require.NoError(t, st.SetAuthToken("jwt-abc"))
	token, err = st.AuthToken()
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)
}

func TestShoppingListPerUser(t *testing.T) {
	st := newTestStore(t)

	list, err := st.ShoppingList(1)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	now := time.Now().Truncate(time.Millisecond)
	items := shopping.Add(nil, "farine", now)
	require.NoError(t, st.SetShoppingList(1, items))

	got, err := st.ShoppingList(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "farine", got[0].Text)

	// Another user still sees an empty list.
	other, err := st.ShoppingList(2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveLastSearch(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SaveLastSearch("tarte", []any{map[string]any{"titre": "Tarte"}}))

	var search LastSearch
	ok, err := st.Get(KeyLastSearch, &search)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tarte", search.Query)
}

func TestInvalidKeys(t *testing.T) {
	st := newTestStore(t)

	assert.Error(t, st.Set("", "value"))
	assert.Error(t, st.Set("a/b", "value"))
	assert.Error(t, st.Set(`a\b`, "value"))

	var out string
	_, err := st.Get("../escape", &out)
	assert.Error(t, err)
}
