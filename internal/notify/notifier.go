// Package notify fans user-visible notifications out to registered
// sinks: the service log always, plus any connected popup clients.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipeai/companion/internal/logging"
)

// Notification is a user-visible message with an optional set of action
// buttons.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Buttons   []string  `json:"buttons,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sink receives notifications. Implementations must not block.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Notifier broadcasts notifications to all registered sinks.
type Notifier struct {
	log *logging.Logger

	mu    sync.RWMutex
	sinks []Sink
}

// New creates a notifier that always logs delivered notifications.
func New(log *logging.Logger) *Notifier {
	return &Notifier{log: log}
}

// AddSink registers an additional delivery sink.
func (n *Notifier) AddSink(sink Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// Show builds and broadcasts a notification.
func (n *Notifier) Show(title, message string, buttons ...string) Notification {
	notification := Notification{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Buttons:   buttons,
		CreatedAt: time.Now(),
	}

	n.log.Info("notification",
		zap.String("id", notification.ID),
		zap.String("title", title),
		zap.String("message", message),
	)

	n.mu.RLock()
	sinks := make([]Sink, len(n.sinks))
	copy(sinks, n.sinks)
	n.mu.RUnlock()

	for _, sink := range sinks {
		sink.Notify(notification)
	}
	return notification
}
