package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

func TestTemplateEngine_RenderExamReminder(t *testing.T) {
	e := NewTemplateEngine()
	title, body, err := e.Render(TemplateExamReminder, map[string]string{
		"patient_name": "Maria",
		"exam_name":    "Obstetric Doppler",
		"window_start": "28",
		"window_end":   "32",
	})
	require.NoError(t, err)
	require.Equal(t, "Time to schedule your Obstetric Doppler", title)
	require.Equal(t, "Hello, Maria! It's almost time for your Obstetric Doppler (ideal between 28-32 weeks). Tap to schedule!", body)
}

func TestTemplateEngine_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateExamReminder, map[string]string{"patient_name": "Ana"})
	require.NoError(t, err)
	require.Contains(t, body, "{{exam_name}}")
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	_, _, err := NewTemplateEngine().Render("nope", nil)
	require.Error(t, err)
}

func TestTemplateEngine_RegisterOverrides(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: TemplateExamReminder, Title: "Olá {{patient_name}}", Body: "b"})
	title, _, err := e.Render(TemplateExamReminder, map[string]string{"patient_name": "Ana"})
	require.NoError(t, err)
	require.Equal(t, "Olá Ana", title)
}

// ---------------------------------------------------------------------------
// Memory Scheduler
// ---------------------------------------------------------------------------

func newTestScheduler(sender PushSender) *MemoryScheduler {
	return NewMemoryScheduler(sender, zerolog.Nop())
}

func TestMemoryScheduler_DispatchDue(t *testing.T) {
	ctx := context.Background()
	sender := &MockPushSender{}
	s := newTestScheduler(sender)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	var delivered []Reminder
	s.OnDelivered(func(_ context.Context, r Reminder) { delivered = append(delivered, r) })

	_, err := s.Schedule(ctx, Reminder{UserID: "u1", ScheduledExamID: "a", Title: "t1", Body: "b1"}, now)
	require.NoError(t, err)
	_, err = s.Schedule(ctx, Reminder{UserID: "u1", ScheduledExamID: "b", Title: "t2", Body: "b2"}, now.Add(48*time.Hour))
	require.NoError(t, err)

	require.Equal(t, 1, s.Dispatch(ctx, now))
	require.Len(t, sender.Calls(), 1)
	require.Equal(t, "t1", sender.Calls()[0].Title)
	require.Len(t, delivered, 1)
	require.Equal(t, "a", delivered[0].ScheduledExamID)
	require.NotNil(t, delivered[0].SentAt)

	// already sent reminders are not resent
	require.Equal(t, 0, s.Dispatch(ctx, now.Add(time.Hour)))
	require.Len(t, s.Pending("u1"), 1)
	require.Equal(t, map[string]int{StatusPending: 1, StatusSent: 1, StatusFailed: 0}, s.Stats())
}

func TestMemoryScheduler_CancelAllIsPerUser(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(&MockPushSender{})
	at := time.Now().Add(time.Hour)

	_, _ = s.Schedule(ctx, Reminder{UserID: "u1"}, at)
	_, _ = s.Schedule(ctx, Reminder{UserID: "u1"}, at)
	_, _ = s.Schedule(ctx, Reminder{UserID: "u2"}, at)

	require.NoError(t, s.CancelAll(ctx, "u1"))
	require.Empty(t, s.Pending("u1"))
	require.Len(t, s.Pending("u2"), 1)
}

func TestMemoryScheduler_RetriesFailures(t *testing.T) {
	ctx := context.Background()
	sender := &MockPushSender{ShouldFail: true, FailError: "device offline"}
	s := newTestScheduler(sender)
	now := time.Now()

	_, _ = s.Schedule(ctx, Reminder{UserID: "u1"}, now)
	for i := 0; i < maxAttempts+2; i++ {
		require.Equal(t, 0, s.Dispatch(ctx, now))
	}
	require.Len(t, sender.Calls(), maxAttempts)

	pending := s.Pending("u1")
	require.Len(t, pending, 1)
	require.Equal(t, StatusFailed, pending[0].Status)
	require.Equal(t, "device offline", pending[0].Error)
}

// blockingSender parks the first SendPush until release is closed.
type blockingSender struct {
	MockPushSender
	entered chan struct{}
	release chan struct{}
	n       int
}

func (b *blockingSender) SendPush(ctx context.Context, userID, title, body string, data map[string]string) error {
	b.n++
	if b.n == 1 {
		b.entered <- struct{}{}
		<-b.release
	}
	return b.MockPushSender.SendPush(ctx, userID, title, body, data)
}

func TestMemoryScheduler_CancelAllDuringDispatch(t *testing.T) {
	ctx := context.Background()
	sender := &blockingSender{entered: make(chan struct{}), release: make(chan struct{})}
	s := newTestScheduler(sender)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	var delivered []Reminder
	s.OnDelivered(func(_ context.Context, r Reminder) { delivered = append(delivered, r) })

	_, _ = s.Schedule(ctx, Reminder{UserID: "u1", ScheduledExamID: "a"}, now)
	_, _ = s.Schedule(ctx, Reminder{UserID: "u1", ScheduledExamID: "b"}, now)

	done := make(chan int)
	go func() { done <- s.Dispatch(ctx, now) }()

	<-sender.entered
	require.NoError(t, s.CancelAll(ctx, "u1"))
	close(sender.release)
	sent := <-done

	// the in-flight send completes, the queued one is dropped, and neither
	// reports delivery back
	require.Equal(t, 1, sent)
	require.Len(t, sender.Calls(), 1)
	require.Empty(t, delivered)
	require.Empty(t, s.Pending("u1"))
}

func TestMemoryScheduler_PendingSortedByFireTime(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(&MockPushSender{})
	base := time.Now()
	_, _ = s.Schedule(ctx, Reminder{UserID: "u1", ExamID: "late"}, base.Add(2*time.Hour))
	_, _ = s.Schedule(ctx, Reminder{UserID: "u1", ExamID: "early"}, base.Add(time.Hour))

	pending := s.Pending("u1")
	require.Len(t, pending, 2)
	require.Equal(t, "early", pending[0].ExamID)
}

// ---------------------------------------------------------------------------
// Kafka Scheduler
// ---------------------------------------------------------------------------

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error { return nil }

func TestKafkaScheduler_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	w := &stubWriter{}
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	k := &KafkaScheduler{writer: w, now: func() time.Time { return fixed }}

	fireAt := fixed.Add(72 * time.Hour)
	id, err := k.Schedule(ctx, Reminder{UserID: "u1", ExamID: "exam_4", Title: "t"}, fireAt)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, k.CancelAll(ctx, "u1"))

	require.Len(t, w.msgs, 2)
	require.Equal(t, "u1", string(w.msgs[0].Key))

	var evt ReminderEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &evt))
	require.Equal(t, EventReminderScheduled, evt.Type)
	require.Equal(t, id, evt.Reminder.ID)
	require.True(t, evt.Reminder.FireAt.Equal(fireAt))

	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &evt))
	require.Equal(t, EventRemindersCleared, evt.Type)
	require.Equal(t, "u1", evt.UserID)
}

func TestKafkaScheduler_WriteError(t *testing.T) {
	k := &KafkaScheduler{writer: &stubWriter{err: errors.New("broker down")}, now: time.Now}
	_, err := k.Schedule(context.Background(), Reminder{UserID: "u1"}, time.Now())
	require.ErrorContains(t, err, "broker down")
}
