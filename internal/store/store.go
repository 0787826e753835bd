// Package store provides the persistent local key-value store: JSON
// values under a data directory with a write-through in-memory cache. It
// stands in for the platform's per-profile storage area.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/recipeai/companion/internal/shopping"
	"github.com/recipeai/companion/internal/types"
)

// Well-known keys.
const (
	KeyAuthToken   = "authToken"
	KeyCurrentUser = "currentUser"
	KeyLastSearch  = "last_search"
)

// Store is a file-backed key-value store. Values are JSON-serializable;
// atomicity holds per call only (temp-file rename), never across calls.
type Store struct {
	dir   string
	cache sync.Map // key -> raw JSON bytes
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Get decodes the value for key into out. The second return is false
// when the key is absent.
func (s *Store) Get(key string, out any) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	if cached, ok := s.cache.Load(key); ok {
		return true, sonic.Unmarshal(cached.([]byte), out)
	}

	data, err := os.ReadFile(s.keyPath(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	s.cache.Store(key, data)
	return true, sonic.Unmarshal(data, out)
}

// Set stores a JSON-serializable value under key.
func (s *Store) Set(key string, value any) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize value for %q: %w", key, err)
	}

	path := s.keyPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit key %q: %w", key, err)
	}

	s.cache.Store(key, data)
	return nil
}

// CurrentUser reads the provisioned session user. The second return is
// false when no user has been provisioned.
func (s *Store) CurrentUser() (types.User, bool, error) {
	var user types.User
	ok, err := s.Get(KeyCurrentUser, &user)
	return user, ok, err
}

// AuthToken reads the persisted bearer token, empty when absent.
func (s *Store) AuthToken() (string, error) {
	var token string
	if _, err := s.Get(KeyAuthToken, &token); err != nil {
		return "", err
	}
	return token, nil
}

// SetAuthToken persists the bearer token.
func (s *Store) SetAuthToken(token string) error {
	return s.Set(KeyAuthToken, token)
}

// ShoppingList reads the per-user shopping list, defaulting to empty.
func (s *Store) ShoppingList(userID int) ([]shopping.Item, error) {
	var list []shopping.Item
	ok, err := s.Get(shoppingListKey(userID), &list)
	if err != nil {
		return nil, err
	}
	if !ok || list == nil {
		return []shopping.Item{}, nil
	}
	return list, nil
}

// SetShoppingList persists the per-user shopping list.
func (s *Store) SetShoppingList(userID int, list []shopping.Item) error {
	return s.Set(shoppingListKey(userID), list)
}

// LastSearch is the most recent selection-triggered search, kept so the
// popup can restore it on open.
type LastSearch struct {
	Query   string `json:"query"`
	Results any    `json:"results"`
}

// SaveLastSearch persists the most recent search and its results.
func (s *Store) SaveLastSearch(query string, results any) error {
	return s.Set(KeyLastSearch, LastSearch{Query: query, Results: results})
}

func shoppingListKey(userID int) string {
	return fmt.Sprintf("shopping_list_%d", userID)
}

func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("store key cannot be empty")
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("store key %q contains path separators", key)
	}
	return nil
}
