// Package popup is the view-model behind the popup surface: tabs for
// recommendations and the shopping list, debounced semantic search, and
// the list mutations. It owns no storage; every effect goes through the
// relay, and its state is an in-memory mirror of the dispatch results.
package popup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/relay"
	"github.com/recipeai/companion/internal/remote"
	"github.com/recipeai/companion/internal/shopping"
	"github.com/recipeai/companion/internal/types"
)

// Tabs.
const (
	TabHome     = "home"
	TabShopping = "shopping"
)

const minQueryLength = 3

// ViewState is the exclusive display state of the active tab.
type ViewState string

const (
	StateLoading ViewState = "loading"
	StateContent ViewState = "content"
	StateError   ViewState = "error"
)

// Dispatcher routes action requests; satisfied by the relay.
type Dispatcher interface {
	Dispatch(ctx context.Context, req types.Request) types.Result
}

// View is a consistent snapshot of the controller state for rendering.
type View struct {
	Tab             string
	State           ViewState
	ErrorMessage    string
	User            types.User
	Recommendations []map[string]any
	Results         []map[string]any
	Items           []shopping.Item
	Stats           shopping.Stats
}

// Controller drives the popup. All mutating methods are safe for
// concurrent use.
type Controller struct {
	relay    Dispatcher
	log      *logging.Logger
	debounce time.Duration

	searchSeq atomic.Int64

	mu              sync.Mutex
	user            types.User
	tab             string
	state           ViewState
	errMsg          string
	recommendations []map[string]any
	results         []map[string]any
	items           []shopping.Item
	stats           shopping.Stats
	searchTimer     *time.Timer
}

// NewController creates a popup controller. The session user starts as
// the default placeholder until the web app provisions a real one.
func NewController(dispatcher Dispatcher, log *logging.Logger, debounce time.Duration) *Controller {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Controller{
		relay:    dispatcher,
		log:      log,
		debounce: debounce,
		user:     types.DefaultUser(),
		tab:      TabHome,
		state:    StateLoading,
	}
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Tab:             c.tab,
		State:           c.state,
		ErrorMessage:    c.errMsg,
		User:            c.user,
		Recommendations: c.recommendations,
		Results:         c.results,
		Items:           c.items,
		Stats:           c.stats,
	}
}

// Badge returns the shopping list badge text, empty when the list is.
func (c *Controller) Badge() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats.Total == 0 {
		return ""
	}
	return fmt.Sprintf("%d", c.stats.Total)
}

// Open initializes the popup: resolve the session user first so every
// later dispatch is keyed to the right one, then land on the home tab.
func (c *Controller) Open(ctx context.Context) {
	c.loadUser(ctx)
	c.SwitchTab(ctx, TabHome)
}

// loadUser fetches the provisioned session user. Failures keep the
// default placeholder, matching a store with no user.
func (c *Controller) loadUser(ctx context.Context) {
	result := c.relay.Dispatch(ctx, types.Request{Action: relay.ActionGetCurrentUser})
	if !result.Success {
		return
	}
	if user, ok := result.Data["user"].(types.User); ok {
		c.mu.Lock()
		c.user = user
		c.mu.Unlock()
	}
}

// SwitchTab activates a tab and reloads its content.
func (c *Controller) SwitchTab(ctx context.Context, tab string) {
	c.mu.Lock()
	c.tab = tab
	c.mu.Unlock()

	switch tab {
	case TabShopping:
		c.LoadShoppingList(ctx)
	default:
		c.LoadRecommendations(ctx)
	}
}

// Retry reloads the active tab after an error.
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	tab := c.tab
	c.mu.Unlock()
	c.SwitchTab(ctx, tab)
}

// LoadRecommendations fetches personalized recommendations for the
// session user.
func (c *Controller) LoadRecommendations(ctx context.Context) {
	c.setLoading()

	result := c.relay.Dispatch(ctx, types.Request{
		Action: relay.ActionGetRecommendations,
		UserID: c.userID(),
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !result.Success {
		c.fail(result, "impossible de charger les recommandations")
		return
	}
	c.recommendations = remote.NormalizeRecipes(result.Data["recommendations"])
	c.state = StateContent
	c.errMsg = ""
}

// Search schedules a debounced semantic search. Queries shorter than the
// minimum are ignored; rapid keystrokes collapse into one request.
func (c *Controller) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.searchTimer = time.AfterFunc(c.debounce, func() {
		c.SearchNow(ctx, query)
	})
}

// SearchNow runs a semantic search immediately. Responses are applied in
// request order: each search takes the next sequence number, and a
// response whose number is no longer the latest is discarded, so a slow
// early response can never overwrite a newer one.
func (c *Controller) SearchNow(ctx context.Context, query string) {
	seq := c.searchSeq.Add(1)
	c.setLoading()

	result := c.relay.Dispatch(ctx, types.Request{
		Action: relay.ActionSearchSemantic,
		Query:  query,
		UserID: c.userID(),
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.searchSeq.Load() {
		c.log.Debug("stale search response dropped", zap.String("query", query))
		return
	}
	if !result.Success {
		c.fail(result, "la recherche a échoué")
		return
	}
	c.results = remote.NormalizeRecipes(result.Data["results"])
	c.state = StateContent
	c.errMsg = ""
}

// LoadShoppingList refreshes the in-memory list mirror.
func (c *Controller) LoadShoppingList(ctx context.Context) {
	c.setLoading()

	result := c.relay.Dispatch(ctx, types.Request{
		Action: relay.ActionGetShoppingList,
		UserID: c.userID(),
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !result.Success {
		c.fail(result, "impossible de charger la liste")
		return
	}
	c.applyListLocked(result.Data)
	c.state = StateContent
	c.errMsg = ""
}

// AddItem appends an item to the shopping list.
func (c *Controller) AddItem(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty item")
	}

	result := c.relay.Dispatch(ctx, types.Request{
		Action: relay.ActionAddToShoppingList,
		Item:   text,
		UserID: c.userID(),
	})
	if !result.Success {
		return fmt.Errorf("add item: %s", errorMessage(result))
	}

	c.mu.Lock()
	c.applyListLocked(result.Data)
	c.mu.Unlock()
	return nil
}

// ToggleItem flips an item's checked state.
func (c *Controller) ToggleItem(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.items = shopping.Toggle(c.items, id)
	c.mu.Unlock()
	return c.push(ctx)
}

// DeleteItem removes an item.
func (c *Controller) DeleteItem(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.items = shopping.Remove(c.items, id)
	c.mu.Unlock()
	return c.push(ctx)
}

// ClearChecked removes every checked item.
func (c *Controller) ClearChecked(ctx context.Context) error {
	c.mu.Lock()
	c.items = shopping.ClearChecked(c.items)
	c.mu.Unlock()
	return c.push(ctx)
}

// push replaces the stored list with the mutated mirror. On failure the
// mirror is reloaded so it cannot drift from the store.
func (c *Controller) push(ctx context.Context) error {
	c.mu.Lock()
	items := c.items
	c.mu.Unlock()

	result := c.relay.Dispatch(ctx, types.Request{
		Action: relay.ActionSetShoppingList,
		Items:  items,
		UserID: c.userID(),
	})
	if !result.Success {
		c.log.Warn("list push failed, reloading", zap.String("error", errorMessage(result)))
		c.LoadShoppingList(ctx)
		return fmt.Errorf("update list: %s", errorMessage(result))
	}

	c.mu.Lock()
	if stats, ok := result.Data["stats"].(shopping.Stats); ok {
		c.stats = stats
	}
	c.mu.Unlock()
	return nil
}

// applyListLocked copies the list so later in-place mutations (toggle,
// delete) cannot reach through to the dispatcher's slice.
func (c *Controller) applyListLocked(data map[string]any) {
	if items, ok := data["shoppingList"].([]shopping.Item); ok {
		c.items = append([]shopping.Item(nil), items...)
	}
	if stats, ok := data["stats"].(shopping.Stats); ok {
		c.stats = stats
	}
}

func (c *Controller) setLoading() {
	c.mu.Lock()
	c.state = StateLoading
	c.mu.Unlock()
}

// fail enters the retryable error state. Callers hold the lock.
func (c *Controller) fail(result types.Result, message string) {
	c.state = StateError
	c.errMsg = message
	if detail := errorMessage(result); detail != "" {
		c.errMsg = message + ": " + detail
	}
}

func (c *Controller) userID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user.ID
}

func errorMessage(result types.Result) string {
	if result.Error == nil {
		return ""
	}
	return *result.Error
}
