// Package recipe implements per-site recipe extraction: a registry of
// selector-based site adapters and the extractor that turns a loaded page
// into a normalized record.
package recipe

import (
	"errors"
	"time"
)

// Difficulty is the normalized difficulty level. Wire values follow the
// Recipe AI backend contract.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "FACILE"
	DifficultyMedium Difficulty = "MOYEN"
	DifficultyHard   Difficulty = "DIFFICILE"
)

// Extraction failure taxonomy. All are non-fatal: callers surface them as
// a transient error state, never a crash.
var (
	ErrNoAdapter = errors.New("no site adapter matches hostname")
	ErrNoTitle   = errors.New("recipe title not found")
)

// Ingredient is one entry of a recipe's ingredient list. Quantity is
// best-effort parsed from the leading text and may be empty.
type Ingredient struct {
	Name     string `json:"nom"`
	Quantity string `json:"quantite"`
}

// Step is one instruction of a recipe. Numbers are sequential from 1 in
// document order.
type Step struct {
	Number      int    `json:"numero"`
	Instruction string `json:"instruction"`
}

// Record is the normalized extraction result shared between the watcher,
// the relay and the remote API. A Record is only ever constructed with a
// non-empty title; every other field degrades to a default instead of
// aborting extraction.
type Record struct {
	Title           string       `json:"titre"`
	Description     string       `json:"description"`
	Ingredients     []Ingredient `json:"ingredients"`
	Steps           []Step       `json:"etapes"`
	ImageURL        string       `json:"imageUrl"`
	SourceURL       string       `json:"url"`
	SourceHost      string       `json:"source"`
	PrepTimeMinutes int          `json:"tempsPreparation"`
	CookTimeMinutes int          `json:"tempsCuisson"`
	Difficulty      Difficulty   `json:"difficulte"`
	Servings        int          `json:"nombrePersonnes"`
	ScrapedAt       time.Time    `json:"scrapedAt"`
}
