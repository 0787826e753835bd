// Package server wires the companion service together and exposes its
// HTTP surface: the action endpoint, the notification stream, health and
// metrics.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recipeai/companion/internal/alarm"
	"github.com/recipeai/companion/internal/config"
	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/monitoring"
	"github.com/recipeai/companion/internal/notify"
	"github.com/recipeai/companion/internal/recipe"
	"github.com/recipeai/companion/internal/relay"
	"github.com/recipeai/companion/internal/remote"
	"github.com/recipeai/companion/internal/store"
	"github.com/recipeai/companion/internal/types"
	"github.com/recipeai/companion/internal/watch"
	"github.com/recipeai/companion/internal/ws"
)

// Server owns the HTTP surface, the background scheduler and the
// active page watchers.
type Server struct {
	cfg       *config.Config
	log       *logging.Logger
	router    *gin.Engine
	httpSrv   *http.Server
	store     *store.Store
	relay     *relay.Relay
	extractor *recipe.Extractor
	metrics   *monitoring.Metrics
	scheduler *alarm.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc

	watchMu  sync.Mutex
	watchers map[string]*pageWatch
}

// pageWatch is one registered watcher and the cancel for its run loop.
type pageWatch struct {
	watcher *watch.Watcher
	cancel  context.CancelFunc
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	st, err := store.New(cfg.Store.Dir)
	if err != nil {
		return nil, err
	}

	registry, err := recipe.NewRegistry()
	if err != nil {
		return nil, err
	}
	extractor := recipe.NewExtractor(registry)

	api := remote.NewClient(cfg.API.BaseURL, st, log.Named("api"))
	metrics := monitoring.New()

	notifier := notify.New(log.Named("notify"))
	wsHandler := ws.NewHandler(log.Named("ws"))
	notifier.AddSink(wsHandler)
	notifier.AddSink(notify.SinkFunc(func(notify.Notification) {
		metrics.Notifications.Inc()
	}))

	dispatcher := relay.New(api, st, extractor, notifier, metrics, log.Named("relay"))
	scheduler := alarm.New(api, st, notifier, log.Named("alarm"), cfg.Alarms.LunchHour, cfg.Alarms.DinnerHour)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		cfg:       cfg,
		log:       log,
		router:    router,
		store:     st,
		relay:     dispatcher,
		extractor: extractor,
		metrics:   metrics,
		scheduler: scheduler,
		ctx:       ctx,
		cancel:    cancel,
		watchers:  make(map[string]*pageWatch),
	}

	router.GET("/health", srv.health)
	router.POST("/actions", srv.handleAction)
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/watch", srv.handleWatch)
	router.POST("/unwatch", srv.handleUnwatch)
	router.POST("/watch/save", srv.handleWatchSave)

	return srv, nil
}

// Run starts the scheduler and serves HTTP until Close is called.
func (s *Server) Run() error {
	if s.cfg.Alarms.Enabled {
		s.scheduler.Start(s.ctx)
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.log.Info("companion service listening", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close stops the scheduler and every watcher, then drains in-flight
// requests.
func (s *Server) Close() error {
	s.cancel()
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "recipeai-companion",
	})
}

// handleAction is the message boundary: every request gets exactly one
// Result, errors included, so the HTTP status is always 200.
func (s *Server) handleAction(c *gin.Context) {
	var req types.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, types.Failure("invalid request: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, s.relay.Dispatch(c.Request.Context(), req))
}

// handleWatch registers a persistent watcher for a URL. The watcher's
// poll loop keeps observing the page (client-side rerenders included)
// until /unwatch or shutdown; it is the headless equivalent of keeping
// the page open in a tab.
func (s *Server) handleWatch(c *gin.Context) {
	url, ok := bindURL(c)
	if !ok {
		return
	}

	watcher := watch.NewWatcher(url, s.extractor, watch.NewFetcher(), s.relay, s.metrics, s.log.Named("watch"), watch.Config{
		SettleDelay:  time.Duration(s.cfg.Watch.SettleDelayMS) * time.Millisecond,
		PollInterval: time.Duration(s.cfg.Watch.PollSeconds) * time.Second,
	})

	s.watchMu.Lock()
	if _, exists := s.watchers[url]; exists {
		s.watchMu.Unlock()
		c.JSON(http.StatusOK, types.Failure("already watching "+url))
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	entry := &pageWatch{watcher: watcher, cancel: cancel}
	s.watchers[url] = entry
	s.watchMu.Unlock()

	go func() {
		defer s.removeWatcher(url, entry)
		watcher.Run(ctx)
	}()

	c.JSON(http.StatusOK, types.Success(map[string]any{"watching": url}))
}

// handleUnwatch stops and forgets a registered watcher.
func (s *Server) handleUnwatch(c *gin.Context) {
	url, ok := bindURL(c)
	if !ok {
		return
	}

	s.watchMu.Lock()
	entry, exists := s.watchers[url]
	s.watchMu.Unlock()
	if !exists {
		c.JSON(http.StatusOK, types.Failure("not watching "+url))
		return
	}

	entry.cancel()
	s.removeWatcher(url, entry)
	c.JSON(http.StatusOK, types.Success(map[string]any{"watching": false}))
}

// handleWatchSave is the affordance click on a watched page.
func (s *Server) handleWatchSave(c *gin.Context) {
	url, ok := bindURL(c)
	if !ok {
		return
	}

	s.watchMu.Lock()
	entry, exists := s.watchers[url]
	s.watchMu.Unlock()
	if !exists {
		c.JSON(http.StatusOK, types.Failure("not watching "+url))
		return
	}

	c.JSON(http.StatusOK, entry.watcher.Save(c.Request.Context()))
}

// removeWatcher forgets an entry, but only the given one. A URL can be
// re-watched while the previous run loop is still winding down, and
// that loop must not evict its replacement.
func (s *Server) removeWatcher(url string, entry *pageWatch) {
	s.watchMu.Lock()
	if s.watchers[url] == entry {
		delete(s.watchers, url)
	}
	s.watchMu.Unlock()
}

func bindURL(c *gin.Context) (string, bool) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusOK, types.Failure("url required"))
		return "", false
	}
	return req.URL, true
}
