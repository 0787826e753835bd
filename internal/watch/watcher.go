// Package watch observes a live recipe page the way the injected
// content script does: it re-checks the page as its markup changes
// (client-side routing included), arms the save affordance when the page
// qualifies, and drives the save action through the relay.
package watch

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/monitoring"
	"github.com/recipeai/companion/internal/recipe"
	"github.com/recipeai/companion/internal/relay"
	"github.com/recipeai/companion/internal/remote"
	"github.com/recipeai/companion/internal/types"
)

// State is the affordance state machine.
type State int

const (
	// StateIdle means no save affordance is armed.
	StateIdle State = iota
	// StateInjected means the affordance is armed on the page.
	StateInjected
)

// Feedback is the transient affordance appearance after a save attempt.
type Feedback string

const (
	FeedbackNone   Feedback = ""
	FeedbackSaving Feedback = "saving"
	FeedbackSaved  Feedback = "saved"
	FeedbackError  Feedback = "error"
)

// PageSource fetches the current HTML of a page.
type PageSource interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// Dispatcher routes action requests; satisfied by the relay.
type Dispatcher interface {
	Dispatch(ctx context.Context, req types.Request) types.Result
}

// Watcher observes one page. Only one affordance can exist per page:
// injection is guarded by the state check, and the saving flag prevents
// duplicate concurrent saves from the same affordance.
type Watcher struct {
	url          string
	extractor    *recipe.Extractor
	source       PageSource
	relay        Dispatcher
	metrics      *monitoring.Metrics
	log          *logging.Logger
	settleDelay  time.Duration
	pollInterval time.Duration
	resetDelay   time.Duration

	mu       sync.Mutex
	state    State
	feedback Feedback
	saving   bool
	doc      *goquery.Document
	lastHash uint64
}

// Config holds watcher timing knobs.
type Config struct {
	SettleDelay  time.Duration // wait after detection before arming, lets client-side rendering finish
	PollInterval time.Duration // page re-check cadence
	ResetDelay   time.Duration // how long save feedback lingers before auto-reset
}

// NewWatcher creates a watcher for one page URL.
func NewWatcher(url string, extractor *recipe.Extractor, source PageSource, relay Dispatcher, metrics *monitoring.Metrics, log *logging.Logger, cfg Config) *Watcher {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = 3 * time.Second
	}
	return &Watcher{
		url:          url,
		extractor:    extractor,
		source:       source,
		relay:        relay,
		metrics:      metrics,
		log:          log,
		settleDelay:  cfg.SettleDelay,
		pollInterval: cfg.PollInterval,
		resetDelay:   cfg.ResetDelay,
	}
}

// State returns the current affordance state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// FeedbackState returns the current affordance appearance.
func (w *Watcher) FeedbackState() Feedback {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.feedback
}

// Run re-fetches the page on the poll interval and feeds changed markup
// through Observe until the context is cancelled. The interval doubles
// as the mutation debounce: redundant rechecks collapse into one per
// tick.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.refresh(ctx); err != nil {
		w.log.Warn("initial page load failed", zap.String("url", w.url), zap.Error(err))
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.refresh(ctx); err != nil {
				w.log.Debug("page refresh failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) error {
	html, err := w.source.FetchHTML(ctx, w.url)
	if err != nil {
		return err
	}

	h := fnv.New64a()
	h.Write([]byte(html))
	sum := h.Sum64()

	w.mu.Lock()
	changed := sum != w.lastHash
	w.lastHash = sum
	w.mu.Unlock()
	if !changed {
		return nil
	}

	doc, err := recipe.LoadHTML(html)
	if err != nil {
		return err
	}
	w.Observe(ctx, doc)
	return nil
}

// Observe processes a page snapshot: when the page qualifies as a recipe
// page and no affordance is armed, it arms one after the settle delay.
// Pages that stop qualifying disarm.
func (w *Watcher) Observe(ctx context.Context, doc *goquery.Document) {
	hostname := hostOf(w.url)
	isRecipe := w.extractor.Registry().IsRecipePage(doc, hostname)

	w.mu.Lock()
	w.doc = doc
	state := w.state
	if !isRecipe && state == StateInjected && !w.saving {
		w.state = StateIdle
		w.feedback = FeedbackNone
		state = StateIdle
	}
	w.mu.Unlock()

	if !isRecipe || state == StateInjected {
		return
	}

	// Let client-side rendering settle before arming.
	timer := time.NewTimer(w.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	w.mu.Lock()
	armed := false
	if w.state == StateIdle {
		w.state = StateInjected
		armed = true
	}
	w.mu.Unlock()

	if armed {
		w.log.Info("save affordance armed", zap.String("url", w.url))
		w.CompareWithKnown(ctx)
	}
}

// Save is the affordance click: extract the page, hand the record to the
// relay, and surface transient feedback. The disabled flag rejects a
// concurrent second click.
func (w *Watcher) Save(ctx context.Context) types.Result {
	w.mu.Lock()
	if w.saving {
		w.mu.Unlock()
		return types.Failure("save already in progress")
	}
	if w.doc == nil {
		w.mu.Unlock()
		return types.Failure("no page loaded")
	}
	w.saving = true
	w.feedback = FeedbackSaving
	doc := w.doc
	w.mu.Unlock()

	rec, err := w.extractor.ExtractFromPage(doc, w.url)
	if w.metrics != nil {
		w.metrics.ObserveExtraction(err == nil)
	}
	if err != nil {
		w.log.Warn("extraction failed", zap.String("url", w.url), zap.Error(err))
		w.settle(FeedbackError, StateIdle)
		return types.Failure("extraction failed: " + err.Error())
	}

	result := w.relay.Dispatch(ctx, types.Request{
		Action: relay.ActionSaveRecipe,
		Recipe: rec,
	})
	if result.Success {
		w.settle(FeedbackSaved, StateInjected)
	} else {
		w.settle(FeedbackError, StateInjected)
	}
	return result
}

// settle records the save outcome, then auto-resets the affordance
// appearance after the reset delay.
func (w *Watcher) settle(fb Feedback, next State) {
	w.mu.Lock()
	w.feedback = fb
	w.mu.Unlock()

	time.AfterFunc(w.resetDelay, func() {
		w.mu.Lock()
		w.saving = false
		w.feedback = FeedbackNone
		w.state = next
		w.mu.Unlock()
	})
}

// CompareWithKnown runs a best-effort semantic search for recipes
// similar to the current page. Purely informational; every failure is
// swallowed.
func (w *Watcher) CompareWithKnown(ctx context.Context) {
	w.mu.Lock()
	doc := w.doc
	w.mu.Unlock()
	if doc == nil {
		return
	}

	rec, err := w.extractor.ExtractFromPage(doc, w.url)
	if err != nil {
		return
	}

	result := w.relay.Dispatch(ctx, types.Request{
		Action: relay.ActionSearchSemantic,
		Query:  rec.Title,
	})
	if !result.Success {
		return
	}
	if similar := remote.NormalizeRecipes(result.Data["results"]); len(similar) > 0 {
		w.log.Info("similar recipes found",
			zap.String("title", rec.Title),
			zap.Int("count", len(similar)),
		)
	}
}
