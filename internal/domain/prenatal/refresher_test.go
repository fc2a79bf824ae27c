package prenatal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestcare/gestcare/internal/domain/schedule"
)

func TestRefresher_RunsImmediatelyAndStops(t *testing.T) {
	env := newTestEnv(t, Options{})
	onboard(t, env, "u1")
	env.clock.Advance(2*week + 24*time.Hour)

	var logs bytes.Buffer
	r := NewRefresher(env.svc, time.Hour, zerolog.New(&logs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		exams, err := schedule.NewRepo(env.kv).List(context.Background(), "u1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if examByCatalogID(t, exams, "exam_1").Status == schedule.StatusMissed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("refresher did not run on start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
	if !strings.Contains(logs.String(), "periodic refresh complete") {
		t.Errorf("expected completion log, got %s", logs.String())
	}
}
