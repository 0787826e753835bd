// Package types defines the shared shapes exchanged between contexts:
// action requests, dispatch results, and the session user.
package types

import (
	"github.com/recipeai/companion/internal/recipe"
	"github.com/recipeai/companion/internal/shopping"
)

// User is the session user. Users are provisioned by the companion web
// app and only read here; DefaultUser stands in when none is stored.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"nom"`
}

// DefaultUser is the placeholder session when no user has been provisioned.
func DefaultUser() User {
	return User{ID: 1, Name: "Utilisateur"}
}

// Request is an action request from any context (popup, page watcher,
// selection menu). Exactly one action is named; the remaining fields are
// that action's payload.
type Request struct {
	Action string          `json:"action"`
	UserID int             `json:"userId,omitempty"`
	Query  string          `json:"query,omitempty"`
	Item   string          `json:"item,omitempty"`
	Items  []shopping.Item `json:"items,omitempty"`
	Recipe *recipe.Record  `json:"recipe,omitempty"`
	URL    string          `json:"url,omitempty"`
	HTML   string          `json:"html,omitempty"`
}

// Result is a dispatch result. Every request gets exactly one Result;
// failures carry a message instead of propagating across the boundary.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *string        `json:"error,omitempty"`
}

// Success creates a successful result.
func Success(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

// Failure creates a failed result.
func Failure(message string) Result {
	msg := message
	return Result{Success: false, Error: &msg}
}
