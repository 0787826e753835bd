// Package relay is the single dispatch hub between contexts: every
// action request from the popup, the page watcher or the selection menu
// goes through Dispatch, which routes to the store and the remote API
// and always produces exactly one Result.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/monitoring"
	"github.com/recipeai/companion/internal/notify"
	"github.com/recipeai/companion/internal/recipe"
	"github.com/recipeai/companion/internal/remote"
	"github.com/recipeai/companion/internal/shopping"
	"github.com/recipeai/companion/internal/store"
	"github.com/recipeai/companion/internal/types"
)

// Supported actions.
const (
	ActionGetCurrentUser     = "get-current-user"
	ActionGetRecommendations = "get-recommendations"
	ActionSearchSemantic     = "search-semantic"
	ActionGetShoppingList    = "get-shopping-list"
	ActionAddToShoppingList  = "add-to-shopping-list"
	ActionSetShoppingList    = "set-shopping-list"
	ActionSaveRecipe         = "save-recipe"
	ActionExtractRecipe      = "extract-recipe"
	ActionSaveSelection      = "save-selection"
	ActionFindRecipes        = "find-recipes"
)

// ErrUnknownAction marks a request whose action has no handler.
var ErrUnknownAction = errors.New("unknown action")

// Relay dispatches action requests. Handlers never leak errors or panics
// to the caller: every failure becomes a Result with Success=false. A
// caller left without a response would hang forever, which is the one
// failure mode this hub must rule out.
type Relay struct {
	api       *remote.Client
	store     *store.Store
	extractor *recipe.Extractor
	notifier  *notify.Notifier
	metrics   *monitoring.Metrics
	log       *logging.Logger
	now       func() time.Time
}

// New creates a relay over its collaborators.
func New(api *remote.Client, st *store.Store, extractor *recipe.Extractor, notifier *notify.Notifier, metrics *monitoring.Metrics, log *logging.Logger) *Relay {
	return &Relay{
		api:       api,
		store:     st,
		extractor: extractor,
		notifier:  notifier,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Dispatch routes a request to its handler and returns the result.
func (r *Relay) Dispatch(ctx context.Context, req types.Request) (result types.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panicked", zap.String("action", req.Action), zap.Any("panic", rec))
			result = types.Failure(fmt.Sprintf("internal error: %v", rec))
		}
		if r.metrics != nil {
			r.metrics.ObserveAction(req.Action, result.Success)
		}
	}()

	r.log.Debug("dispatching", zap.String("action", req.Action))

	var (
		data map[string]any
		err  error
	)
	switch req.Action {
	case ActionGetCurrentUser:
		data, err = r.getCurrentUser()
	case ActionGetRecommendations:
		data, err = r.getRecommendations(ctx, req)
	case ActionSearchSemantic:
		data, err = r.searchSemantic(ctx, req)
	case ActionGetShoppingList:
		data, err = r.getShoppingList(req)
	case ActionAddToShoppingList:
		data, err = r.addToShoppingList(req)
	case ActionSetShoppingList:
		data, err = r.setShoppingList(req)
	case ActionSaveRecipe:
		data, err = r.saveRecipe(ctx, req)
	case ActionExtractRecipe:
		data, err = r.extractRecipe(req)
	case ActionSaveSelection:
		data, err = r.saveSelection(req)
	case ActionFindRecipes:
		data, err = r.findRecipes(ctx, req)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}

	if err != nil {
		r.log.Warn("action failed", zap.String("action", req.Action), zap.Error(err))
		return types.Failure(err.Error())
	}
	return types.Success(data)
}

// getCurrentUser reads the provisioned session user, falling back to
// the default placeholder when none is stored.
func (r *Relay) getCurrentUser() (map[string]any, error) {
	user, ok, err := r.store.CurrentUser()
	if err != nil {
		return nil, err
	}
	if !ok {
		user = types.DefaultUser()
	}
	return map[string]any{"user": user, "provisioned": ok}, nil
}

func (r *Relay) getRecommendations(ctx context.Context, req types.Request) (map[string]any, error) {
	payload, err := r.api.Recommendations(ctx, r.resolveUserID(req.UserID))
	if err != nil {
		return nil, err
	}
	return map[string]any{"recommendations": payload}, nil
}

func (r *Relay) searchSemantic(ctx context.Context, req types.Request) (map[string]any, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query required")
	}
	payload, err := r.api.SearchSemantic(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": payload}, nil
}

func (r *Relay) getShoppingList(req types.Request) (map[string]any, error) {
	list, err := r.store.ShoppingList(r.resolveUserID(req.UserID))
	if err != nil {
		return nil, err
	}
	return map[string]any{"shoppingList": list, "stats": shopping.Tally(list)}, nil
}

func (r *Relay) addToShoppingList(req types.Request) (map[string]any, error) {
	if req.Item == "" {
		return nil, fmt.Errorf("item required")
	}
	userID := r.resolveUserID(req.UserID)
	list, err := r.store.ShoppingList(userID)
	if err != nil {
		return nil, err
	}
	list = shopping.Add(list, req.Item, r.now())
	if err := r.store.SetShoppingList(userID, list); err != nil {
		return nil, err
	}
	return map[string]any{"shoppingList": list, "stats": shopping.Tally(list)}, nil
}

// setShoppingList replaces the whole per-user list. The popup mutates
// its in-memory mirror (toggle, delete, clear checked) and pushes the
// result here.
func (r *Relay) setShoppingList(req types.Request) (map[string]any, error) {
	userID := r.resolveUserID(req.UserID)
	list := req.Items
	if list == nil {
		list = []shopping.Item{}
	}
	if err := r.store.SetShoppingList(userID, list); err != nil {
		return nil, err
	}
	return map[string]any{"stats": shopping.Tally(list)}, nil
}

func (r *Relay) saveRecipe(ctx context.Context, req types.Request) (map[string]any, error) {
	if req.Recipe == nil || req.Recipe.Title == "" {
		return nil, fmt.Errorf("recipe with title required")
	}
	payload, err := r.api.ImportExternal(ctx, req.Recipe, r.resolveUserID(req.UserID))
	if err != nil {
		return nil, err
	}
	r.notifier.Show("✓ Recette sauvegardée", req.Recipe.Title)
	return map[string]any{"imported": payload}, nil
}

// extractRecipe parses supplied page HTML and returns the structured
// record without saving it.
func (r *Relay) extractRecipe(req types.Request) (map[string]any, error) {
	if req.URL == "" || req.HTML == "" {
		return nil, fmt.Errorf("url and html required")
	}
	doc, err := recipe.LoadHTML(req.HTML)
	if err != nil {
		return nil, err
	}
	rec, err := r.extractor.ExtractFromPage(doc, req.URL)
	if r.metrics != nil {
		r.metrics.ObserveExtraction(err == nil)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"recipe": rec}, nil
}

// saveSelection is the "add selection to shopping list" context-menu
// entry: add the selected text, then confirm with a notification.
func (r *Relay) saveSelection(req types.Request) (map[string]any, error) {
	data, err := r.addToShoppingList(req)
	if err != nil {
		return nil, err
	}
	r.notifier.Show("✓ Ajouté à la liste", fmt.Sprintf("%q ajouté à votre liste de courses", req.Item))
	return data, nil
}

// findRecipes is the "find recipes for selection" context-menu entry:
// run the search and persist it so the popup restores it on open.
func (r *Relay) findRecipes(ctx context.Context, req types.Request) (map[string]any, error) {
	data, err := r.searchSemantic(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveLastSearch(req.Query, data["results"]); err != nil {
		r.log.Warn("failed to persist last search", zap.Error(err))
	}
	return data, nil
}

// resolveUserID falls back from the request to the stored session user
// to the default placeholder.
func (r *Relay) resolveUserID(requested int) int {
	if requested != 0 {
		return requested
	}
	if user, ok, err := r.store.CurrentUser(); err == nil && ok {
		return user.ID
	}
	return types.DefaultUser().ID
}
