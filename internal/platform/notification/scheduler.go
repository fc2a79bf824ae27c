package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxAttempts bounds delivery retries for a failed reminder.
const maxAttempts = 3

// DeliveredFunc is invoked after a reminder was handed to the sender.
type DeliveredFunc func(ctx context.Context, r Reminder)

// MemoryScheduler keeps scheduled reminders in memory and delivers those that
// are due on each Dispatch.
type MemoryScheduler struct {
	sender      PushSender
	logger      zerolog.Logger
	onDelivered DeliveredFunc

	mu        sync.Mutex
	reminders map[string]*Reminder
}

// NewMemoryScheduler creates a scheduler delivering through sender.
func NewMemoryScheduler(sender PushSender, logger zerolog.Logger) *MemoryScheduler {
	return &MemoryScheduler{
		sender:    sender,
		logger:    logger,
		reminders: make(map[string]*Reminder),
	}
}

// OnDelivered registers a callback fired after each successful delivery.
func (s *MemoryScheduler) OnDelivered(fn DeliveredFunc) {
	s.mu.Lock()
	s.onDelivered = fn
	s.mu.Unlock()
}

// Schedule stores r to fire at fireAt and returns its id.
func (s *MemoryScheduler) Schedule(_ context.Context, r Reminder, fireAt time.Time) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.FireAt = fireAt
	r.Status = StatusPending
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.reminders[r.ID] = &r
	s.mu.Unlock()
	return r.ID, nil
}

// CancelAll drops every undelivered reminder of a user.
func (s *MemoryScheduler) CancelAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.reminders {
		if r.UserID == userID && r.Status != StatusSent {
			delete(s.reminders, id)
		}
	}
	return nil
}

// Pending returns a user's undelivered reminders ordered by fire time.
func (s *MemoryScheduler) Pending(userID string) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reminder
	for _, r := range s.reminders {
		if r.UserID == userID && (r.Status == StatusPending || r.Status == StatusFailed) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Dispatch delivers every reminder due at now and returns how many were sent.
// Failed deliveries are retried on later calls up to maxAttempts. Each
// reminder is claimed under the lock right before its send, so one cancelled
// by CancelAll in the meantime is skipped. One cancelled while its send is in
// flight does not fire the delivery callback.
func (s *MemoryScheduler) Dispatch(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var due []*Reminder
	for _, r := range s.reminders {
		if dispatchable(r, now) {
			due = append(due, r)
		}
	}
	onDelivered := s.onDelivered
	s.mu.Unlock()

	sent := 0
	for _, r := range due {
		s.mu.Lock()
		if s.reminders[r.ID] != r || !dispatchable(r, now) {
			s.mu.Unlock()
			continue
		}
		r.Status = StatusSending
		msg := *r
		s.mu.Unlock()

		err := s.sender.SendPush(ctx, msg.UserID, msg.Title, msg.Body, msg.Data)

		s.mu.Lock()
		current := s.reminders[r.ID] == r
		r.Attempts++
		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
		} else {
			at := now
			r.Status = StatusSent
			r.SentAt = &at
			r.Error = ""
		}
		delivered := *r
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn().Err(err).
				Str("reminder_id", delivered.ID).
				Int("attempts", delivered.Attempts).
				Msg("reminder delivery failed")
			continue
		}
		sent++
		if !current {
			s.logger.Debug().Str("reminder_id", delivered.ID).Msg("reminder cancelled during delivery")
			continue
		}
		if onDelivered != nil {
			onDelivered(ctx, delivered)
		}
	}
	return sent
}

func dispatchable(r *Reminder, now time.Time) bool {
	retryable := r.Status == StatusFailed && r.Attempts < maxAttempts
	return (r.Status == StatusPending || retryable) && !r.FireAt.After(now)
}

// Run calls Dispatch every interval until ctx is cancelled.
func (s *MemoryScheduler) Run(ctx context.Context, interval time.Duration, clock func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Dispatch(ctx, clock()); n > 0 {
				s.logger.Info().Int("sent", n).Msg("reminders dispatched")
			}
		}
	}
}

// Stats returns reminder counts by status.
func (s *MemoryScheduler) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := map[string]int{
		StatusPending: 0,
		StatusSent:    0,
		StatusFailed:  0,
	}
	for _, r := range s.reminders {
		stats[r.Status]++
	}
	return stats
}
