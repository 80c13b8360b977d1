package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/callback/internal/schedule"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	fail  bool
	calls int
}

type sentMessage struct {
	to   string
	body string
}

func (f *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return "", errors.New("provider rejected message")
	}
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return "SM123", nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnceSendsDueEntries(t *testing.T) {
	sched := schedule.New(testLogger())
	sender := &fakeSender{}
	d := New(sched, sender, nil, time.Hour, testLogger())

	sched.Enqueue("call-1", "1h", "+15551234567", "follow up", 0)
	d.RunOnce(context.Background(), time.Now())

	if sender.sentCount() != 1 {
		t.Fatalf("expected 1 send, got %d", sender.sentCount())
	}
	if sender.sent[0].to != "+15551234567" || sender.sent[0].body != "follow up" {
		t.Errorf("unexpected send: %+v", sender.sent[0])
	}
	if len(sched.DueEntries(time.Now())) != 0 {
		t.Errorf("sent entry must no longer be due")
	}
}

func TestRunOnceDoesNotResendSentEntries(t *testing.T) {
	sched := schedule.New(testLogger())
	sender := &fakeSender{}
	d := New(sched, sender, nil, time.Hour, testLogger())

	sched.Enqueue("call-1", "1h", "+15551234567", "follow up", 0)
	d.RunOnce(context.Background(), time.Now())
	d.RunOnce(context.Background(), time.Now())

	if sender.sentCount() != 1 {
		t.Errorf("expected exactly 1 send across ticks, got %d", sender.sentCount())
	}
}

func TestRunOnceLeavesFailedSendsPending(t *testing.T) {
	sched := schedule.New(testLogger())
	sender := &fakeSender{fail: true}
	d := New(sched, sender, nil, time.Hour, testLogger())

	sched.Enqueue("call-1", "1h", "+15551234567", "follow up", 0)
	d.RunOnce(context.Background(), time.Now())

	if len(sched.DueEntries(time.Now())) != 1 {
		t.Fatalf("failed entry must stay pending")
	}

	// next tick retries
	d.RunOnce(context.Background(), time.Now())
	if sender.callCount() != 2 {
		t.Errorf("expected retry on next tick, got %d attempts", sender.callCount())
	}
}

func TestSentEntriesEvictedAfterGrace(t *testing.T) {
	sched := schedule.New(testLogger())
	sender := &fakeSender{}
	d := New(sched, sender, nil, 20*time.Millisecond, testLogger())

	sched.Enqueue("call-1", "1h", "+15551234567", "follow up", 0)
	d.RunOnce(context.Background(), time.Now())

	if len(sched.Snapshot()) != 1 {
		t.Fatalf("entry should linger inside the grace window")
	}

	deadline := time.Now().Add(time.Second)
	for len(sched.Snapshot()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("entry not evicted after grace window")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFireOnceDeliversAfterDelay(t *testing.T) {
	sched := schedule.New(testLogger())
	sender := &fakeSender{}
	d := New(sched, sender, nil, time.Hour, testLogger())

	d.FireOnce(5*time.Millisecond, "+15550001111", "welcome", "calendar-link")

	deadline := time.Now().Add(time.Second)
	for sender.sentCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("one-off never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if sender.sent[0].to != "+15550001111" {
		t.Errorf("unexpected recipient: %q", sender.sent[0].to)
	}
}

func TestFireOnceFailureIsSwallowed(t *testing.T) {
	sched := schedule.New(testLogger())
	sender := &fakeSender{fail: true}
	d := New(sched, sender, nil, time.Hour, testLogger())

	d.FireOnce(0, "+15550001111", "welcome", "calendar-link")

	deadline := time.Now().Add(time.Second)
	for sender.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("one-off was never attempted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// nothing to assert beyond "no panic"; failures are logged and dropped
}
