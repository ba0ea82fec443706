package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
}

func (r *recordingSubscriber) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recordingSubscriber) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	alice := &recordingSubscriber{}
	bob := &recordingSubscriber{}
	hub.Register("alice", alice)
	hub.Register("bob", bob)

	if err := hub.Publish("alice", Event{Type: "invitation.accepted", TeamID: "team-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, func() bool { return alice.count() == 1 })
	if bob.count() != 0 {
		t.Fatalf("expected bob to receive nothing, got %d", bob.count())
	}

	var event Event
	alice.mu.Lock()
	err := json.Unmarshal(alice.payloads[0], &event)
	alice.mu.Unlock()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != "invitation.accepted" || event.TeamID != "team-1" || event.OccurredAt.IsZero() {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestFailingSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	broken := &recordingSubscriber{fail: true}
	hub.Register("alice", broken)
	waitFor(t, func() bool { return hub.Connected("alice") == 1 })

	hub.Broadcast("alice", []byte("hello"))
	waitFor(t, func() bool { return hub.Connected("alice") == 0 })

	broken.mu.Lock()
	defer broken.mu.Unlock()
	if !broken.closed {
		t.Fatalf("expected failing subscriber to be closed")
	}
}
