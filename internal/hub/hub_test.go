package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"drop-live/internal/events"
)

// recordingTransport captures every message sent to it.
type recordingTransport struct {
	mu       sync.Mutex
	msgs     [][]byte
	sendable bool
	failSend bool
	closed   bool
}

func newRecording() *recordingTransport {
	return &recordingTransport{sendable: true}
}

func (r *recordingTransport) Send(msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSend {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	r.msgs = append(r.msgs, cp)
	return nil
}

func (r *recordingTransport) Sendable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendable
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.sendable = false
	return nil
}

func (r *recordingTransport) types(t *testing.T) []string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(m, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		out = append(out, env.Type)
	}
	return out
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// waitTypes waits until n messages arrived and returns their types.
func (r *recordingTransport) waitTypes(t *testing.T, n int) []string {
	t.Helper()
	waitFor(t, func() bool { return r.count() >= n })
	return r.types(t)
}

// stallingTransport blocks every Send until released.
type stallingTransport struct {
	release chan struct{}
	entered atomic.Int32
}

func (s *stallingTransport) Send([]byte) error {
	s.entered.Add(1)
	<-s.release
	return nil
}

func (s *stallingTransport) Sendable() bool { return true }

func (s *stallingTransport) Close() error { return nil }

func newTestHub() *Hub {
	return New(zerolog.Nop())
}

func TestHub_SubscribeSendsConnected(t *testing.T) {
	h := newTestHub()
	tr := newRecording()

	sub := h.Subscribe("pepe-abc123", tr)

	if sub.Key() != "pepe-abc123" {
		t.Errorf("expected key pepe-abc123, got %s", sub.Key())
	}
	got := tr.waitTypes(t, 1)
	if len(got) != 1 || got[0] != "CONNECTED" {
		t.Fatalf("expected [CONNECTED], got %v", got)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	var env struct {
		Data events.Connected `json:"data"`
	}
	if err := json.Unmarshal(tr.msgs[0], &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.SessionKey != "pepe-abc123" {
		t.Errorf("expected sessionKey pepe-abc123, got %s", env.Data.SessionKey)
	}
}

func TestHub_PublishPartitionedByKey(t *testing.T) {
	h := newTestHub()
	a := newRecording()
	b := newRecording()
	other := newRecording()

	h.Subscribe("k1", a)
	h.Subscribe("k1", b)
	h.Subscribe("k2", other)

	n := h.Publish("k1", events.PollClosed{PollID: "p1"})
	if n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}

	for name, tr := range map[string]*recordingTransport{"a": a, "b": b} {
		got := tr.waitTypes(t, 2)
		if len(got) != 2 || got[1] != "POLL_CLOSED" {
			t.Errorf("%s: expected [CONNECTED POLL_CLOSED], got %v", name, got)
		}
	}
	if got := other.waitTypes(t, 1); len(got) != 1 {
		t.Errorf("subscriber of k2 should only have CONNECTED, got %v", got)
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := newTestHub()
	if n := h.Publish("nobody", events.Pong{}); n != 0 {
		t.Errorf("expected 0 deliveries, got %d", n)
	}
}

func TestHub_PublishSkipsUnsendable(t *testing.T) {
	h := newTestHub()
	live := newRecording()
	dead := newRecording()

	h.Subscribe("k", live)
	h.Subscribe("k", dead)
	dead.waitTypes(t, 1)
	dead.Close()

	n := h.Publish("k", events.ThresholdUpdated{ThresholdRaw: "100"})
	if n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}
	live.waitTypes(t, 2)
	if got := dead.types(t); len(got) != 1 {
		t.Errorf("closed transport should not receive events, got %v", got)
	}
}

func TestHub_PublishSendFailureDoesNotStopFanout(t *testing.T) {
	h := newTestHub()
	broken := newRecording()
	ok := newRecording()

	h.Subscribe("k", broken)
	h.Subscribe("k", ok)
	broken.waitTypes(t, 1)
	broken.mu.Lock()
	broken.failSend = true
	broken.mu.Unlock()

	h.Publish("k", events.PollClosed{PollID: "p"})
	h.Publish("k", events.PollClosed{PollID: "q"})
	if got := ok.waitTypes(t, 3); len(got) != 3 {
		t.Errorf("healthy subscriber should receive event, got %v", got)
	}
}

func TestHub_UnsubscribeRemovesEmptyRoom(t *testing.T) {
	h := newTestHub()
	a := newRecording()
	b := newRecording()

	subA := h.Subscribe("k", a)
	subB := h.Subscribe("k", b)
	if h.CountFor("k") != 2 || h.TotalCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d/%d", h.CountFor("k"), h.TotalCount())
	}

	h.Unsubscribe(subA)
	if h.CountFor("k") != 1 {
		t.Errorf("expected 1 subscriber, got %d", h.CountFor("k"))
	}

	h.Unsubscribe(subB)
	h.Unsubscribe(subB) // second call is a no-op
	if h.CountFor("k") != 0 || h.TotalCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d/%d", h.CountFor("k"), h.TotalCount())
	}

	h.mu.RLock()
	_, exists := h.rooms["k"]
	h.mu.RUnlock()
	if exists {
		t.Error("empty room should be removed")
	}

	// The key is usable again after removal.
	c := newRecording()
	h.Subscribe("k", c)
	h.Publish("k", events.Pong{})
	if got := c.waitTypes(t, 2); len(got) != 2 {
		t.Errorf("expected CONNECTED and PONG, got %v", got)
	}
}

func TestHub_HandleInboundPing(t *testing.T) {
	h := newTestHub()
	tr := newRecording()
	sub := h.Subscribe("k", tr)

	h.HandleInbound(sub, []byte(`{"type":"PING"}`))
	h.HandleInbound(sub, []byte(`{"type":"HELLO"}`))
	h.HandleInbound(sub, []byte(`not json`))

	got := tr.waitTypes(t, 2)
	time.Sleep(20 * time.Millisecond)
	got = tr.types(t)
	if len(got) != 2 || got[1] != "PONG" {
		t.Errorf("expected [CONNECTED PONG], got %v", got)
	}
}

func TestHub_ConcurrentSubscribePublish(t *testing.T) {
	h := newTestHub()
	const workers = 50

	var wg sync.WaitGroup
	subs := make([]*Subscription, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subs[i] = h.Subscribe("k", newRecording())
			h.Publish("k", events.Pong{})
		}(i)
	}
	wg.Wait()

	if h.TotalCount() != workers {
		t.Fatalf("expected %d subscribers, got %d", workers, h.TotalCount())
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Unsubscribe(subs[i])
		}(i)
	}
	wg.Wait()

	if h.TotalCount() != 0 || h.CountFor("k") != 0 {
		t.Errorf("expected empty hub, got %d/%d", h.TotalCount(), h.CountFor("k"))
	}
}

func TestHub_StalledSubscriberDoesNotDelayOthers(t *testing.T) {
	h := newTestHub()
	stalled := make([]*stallingTransport, 3)
	for i := range stalled {
		stalled[i] = &stallingTransport{release: make(chan struct{})}
		h.Subscribe("k", stalled[i])
	}
	defer func() {
		for _, s := range stalled {
			close(s.release)
		}
	}()
	healthy := newRecording()
	h.Subscribe("k", healthy)

	start := time.Now()
	n := h.Publish("k", events.PollClosed{PollID: "p"})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("publish blocked for %v", elapsed)
	}
	if n != 4 {
		t.Errorf("expected 4 queued deliveries, got %d", n)
	}
	if got := healthy.waitTypes(t, 2); got[1] != "POLL_CLOSED" {
		t.Errorf("expected [CONNECTED POLL_CLOSED], got %v", got)
	}
}

func TestHub_FullQueueDropsEvents(t *testing.T) {
	h := New(zerolog.Nop(), WithQueueSize(2))
	stalled := &stallingTransport{release: make(chan struct{})}
	defer close(stalled.release)
	h.Subscribe("k", stalled)

	// The writer is stuck sending CONNECTED, so the queue accepts two more.
	waitFor(t, func() bool { return stalled.entered.Load() == 1 })
	for i := 0; i < 2; i++ {
		if n := h.Publish("k", events.Pong{}); n != 1 {
			t.Fatalf("publish %d: expected 1 queued delivery, got %d", i, n)
		}
	}
	if h.Publish("k", events.Pong{}) != 0 {
		t.Error("expected event to be dropped while the queue is full")
	}
}

func TestHub_ConnectedPrecedesConcurrentEvents(t *testing.T) {
	h := newTestHub()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.Publish("k", events.Pong{})
			}
		}
	}()

	transports := make([]*recordingTransport, 20)
	for i := range transports {
		transports[i] = newRecording()
		h.Subscribe("k", transports[i])
	}
	close(stop)
	wg.Wait()

	for i, tr := range transports {
		if got := tr.waitTypes(t, 1); got[0] != "CONNECTED" {
			t.Errorf("subscriber %d: first event %s, want CONNECTED", i, got[0])
		}
	}
}
