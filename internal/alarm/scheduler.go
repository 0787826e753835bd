// Package alarm schedules the daily meal reminders: at fixed local
// times, fetch a personalized recommendation for the session user and
// surface it as a notification.
package alarm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/notify"
	"github.com/recipeai/companion/internal/remote"
	"github.com/recipeai/companion/internal/types"
)

// RecommendationSource fetches personalized recommendations.
type RecommendationSource interface {
	Recommendations(ctx context.Context, userID int) (any, error)
}

// UserSource reads the provisioned session user.
type UserSource interface {
	CurrentUser() (types.User, bool, error)
}

// Reminder is one recurring daily alarm.
type Reminder struct {
	Name   string
	Hour   int
	Minute int
	Meal   string
}

// NextAlarmTime returns the next occurrence of hour:minute relative to
// now: today if still ahead, otherwise the same time tomorrow.
func NextAlarmTime(hour, minute int, now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Scheduler runs the reminders until its context is cancelled.
type Scheduler struct {
	api       RecommendationSource
	users     UserSource
	notifier  *notify.Notifier
	log       *logging.Logger
	now       func() time.Time
	reminders []Reminder
}

// New creates a scheduler with the standard lunch and dinner reminders.
func New(api RecommendationSource, users UserSource, notifier *notify.Notifier, log *logging.Logger, lunchHour, dinnerHour int) *Scheduler {
	return &Scheduler{
		api:      api,
		users:    users,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		reminders: []Reminder{
			{Name: "lunch-reminder", Hour: lunchHour, Meal: "déjeuner"},
			{Name: "dinner-reminder", Hour: dinnerHour, Meal: "dîner"},
		},
	}
}

// Start launches one goroutine per reminder.
func (s *Scheduler) Start(ctx context.Context) {
	for _, reminder := range s.reminders {
		go s.run(ctx, reminder)
	}
}

func (s *Scheduler) run(ctx context.Context, reminder Reminder) {
	for {
		next := NextAlarmTime(reminder.Hour, reminder.Minute, s.now())
		s.log.Debug("reminder scheduled",
			zap.String("name", reminder.Name),
			zap.Time("at", next),
		)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Fire(ctx, reminder)
		}
	}
}

// Fire runs one reminder: no provisioned user means no notification, and
// a failed fetch is logged and dropped, never retried.
func (s *Scheduler) Fire(ctx context.Context, reminder Reminder) {
	user, ok, err := s.users.CurrentUser()
	if err != nil || !ok {
		return
	}

	payload, err := s.api.Recommendations(ctx, user.ID)
	if err != nil {
		s.log.Warn("reminder fetch failed", zap.String("name", reminder.Name), zap.Error(err))
		return
	}

	recipes := remote.NormalizeRecipes(payload)
	if len(recipes) == 0 {
		return
	}

	title := remote.RecipeTitle(recipes[0])
	if title == "" {
		title = "Nouvelle recette disponible"
	}
	s.notifier.Show("🍽️ Suggestion pour votre "+reminder.Meal, title)
}
