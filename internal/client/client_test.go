package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ip-05/quizzus-client/internal/game"
	"github.com/ip-05/quizzus-client/internal/protocol"
	"github.com/ip-05/quizzus-client/internal/rest"
)

type fakeTransport struct {
	mu           sync.Mutex
	sent         []protocol.ClientMessage
	closed       bool
	onEvent      func(protocol.Event)
	onDisconnect func(error)
}

func (f *fakeTransport) Connect() {}

func (f *fakeTransport) Send(msg protocol.ClientMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) OnEvent(fn func(protocol.Event)) { f.onEvent = fn }
func (f *fakeTransport) OnDisconnect(fn func(error))     { f.onDisconnect = fn }

func (f *fakeTransport) push(ev protocol.Event) { f.onEvent(ev) }

func (f *fakeTransport) sentTags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags := make([]string, len(f.sent))
	for i, m := range f.sent {
		tags[i] = m.Message
	}
	return tags
}

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("subscriber channel closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvClosed(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("subscriber channel never closed")
		}
	}
}

func newTestClient(t *testing.T, localID uint) (*Client, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	c := New(context.Background(), Config{
		Transport: tr,
		LocalUser: protocol.User{ID: localID, Name: "me"},
	})
	t.Cleanup(c.Close)
	return c, tr
}

func joinedRoom(ownerID uint) protocol.JoinedGame {
	return protocol.JoinedGame{Room: protocol.Room{
		ID:         7,
		InviteCode: "ABC123",
		Topic:      "Capitals",
		Owner:      protocol.User{ID: ownerID, Name: "host"},
		Members: map[uint]protocol.User{
			ownerID: {ID: ownerID, Name: "host"},
		},
		Leaderboard: map[uint]float64{ownerID: 0},
	}}
}

func TestClient_JoinFlowBroadcastsSnapshots(t *testing.T) {
	c, tr := newTestClient(t, 2)

	snaps, unsubscribe := c.Subscribe(8)
	defer unsubscribe()

	first := recvSnapshot(t, snaps, time.Second)
	if first.State.Phase != game.PhaseIdle || !first.Connected {
		t.Fatalf("initial snapshot should be idle and connected, got %+v", first)
	}

	if err := c.JoinRoom("ABC123"); err != nil {
		t.Fatalf("join: %v", err)
	}
	afterIntent := recvSnapshot(t, snaps, time.Second)
	if afterIntent.Version <= first.Version {
		t.Fatalf("intent must bump the version")
	}

	tags := tr.sentTags()
	if len(tags) != 1 || tags[0] != protocol.TagJoinGame {
		t.Fatalf("want one JOIN_GAME on the wire, got %v", tags)
	}

	tr.push(joinedRoom(1))
	joined := recvSnapshot(t, snaps, time.Second)
	if joined.State.Phase != game.PhaseWaitParticipant {
		t.Fatalf("want waitingRoomParticipant, got %v", joined.State.Phase)
	}
	if joined.State.InviteCode != "ABC123" {
		t.Fatalf("session fields not populated: %+v", joined.State)
	}
}

func TestClient_PreconditionFailureLeavesStateAlone(t *testing.T) {
	c, tr := newTestClient(t, 2)
	tr.push(joinedRoom(1))

	err := c.SubmitAnswer(0)
	if !errors.Is(err, game.ErrWrongPhase) {
		t.Fatalf("want ErrWrongPhase, got %v", err)
	}

	for _, tag := range tr.sentTags() {
		if tag == protocol.TagAnswerQuestion {
			t.Fatalf("rejected intent must not reach the wire")
		}
	}

	snap := c.State()
	if len(snap.State.Answers) != 0 || snap.State.Pending != game.NoSelection {
		t.Fatalf("rejected intent mutated state: %+v", snap.State)
	}
}

func TestClient_NoOpEventsDoNotBumpVersion(t *testing.T) {
	c, tr := newTestClient(t, 2)
	tr.push(joinedRoom(1))

	before := c.State()
	tr.push(protocol.Pong{})
	tr.push(protocol.RoundWaiting{})
	after := c.State()

	if after.Version != before.Version {
		t.Fatalf("no-op events must not notify: %d -> %d", before.Version, after.Version)
	}
}

func TestClient_DisconnectSurfacesInSnapshot(t *testing.T) {
	c, tr := newTestClient(t, 2)

	snaps, unsubscribe := c.Subscribe(8)
	defer unsubscribe()
	_ = recvSnapshot(t, snaps, time.Second)

	tr.onDisconnect(errors.New("broken pipe"))

	snap := recvSnapshot(t, snaps, time.Second)
	if snap.Connected {
		t.Fatalf("disconnect must reach subscribers")
	}
	// No reconnection is attempted; the session just sits there.
	state := c.State()
	if state.Connected {
		t.Fatalf("state should stay disconnected")
	}
}

func TestClient_SlowSubscriberIsDropped(t *testing.T) {
	c, tr := newTestClient(t, 2)

	snaps, _ := c.Subscribe(1)
	_ = recvSnapshot(t, snaps, time.Second) // drain the initial snapshot

	// Two changes against a full, undrained buffer: the second broadcast
	// finds the subscriber stuck and drops them. State() round-trips the
	// inbox, so both broadcasts have happened before anyone reads snaps.
	tr.push(joinedRoom(1))
	tr.push(protocol.UserJoined{User: protocol.User{ID: 3, Name: "bob"}})
	_ = c.State()

	recvClosed(t, snaps, time.Second)
}

func TestClient_CloseTearsDownTransportAndSubscribers(t *testing.T) {
	tr := &fakeTransport{}
	c := New(context.Background(), Config{
		Transport: tr,
		LocalUser: protocol.User{ID: 2},
	})

	snaps, _ := c.Subscribe(8)
	_ = recvSnapshot(t, snaps, time.Second)

	c.Close()
	recvClosed(t, snaps, time.Second)

	tr.mu.Lock()
	closed := tr.closed
	tr.mu.Unlock()
	if !closed {
		t.Fatalf("transport must not outlive the session")
	}
}

func TestClient_CallsAfterCloseReturnPromptly(t *testing.T) {
	c, _ := newTestClient(t, 2)

	c.Close()
	<-c.Done()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = c.State()
		}
		if err := c.StartGame(); !errors.Is(err, context.Canceled) {
			t.Errorf("want context.Canceled after close, got %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client API hung after Close")
	}

	snaps, unsubscribe := c.Subscribe(1)
	unsubscribe()
	recvClosed(t, snaps, time.Second)
}

func TestClient_OwnerScenarioOverFakeWire(t *testing.T) {
	c, tr := newTestClient(t, 1) // local user is the owner

	tr.push(joinedRoom(1))
	tr.push(protocol.UserJoined{User: protocol.User{ID: 2, Name: "alice"}})
	tr.push(protocol.UserJoined{User: protocol.User{ID: 3, Name: "bob"}})

	if err := c.StartGame(); err != nil {
		t.Fatalf("start: %v", err)
	}
	tr.push(protocol.GameStarting{Seconds: 3})
	tr.push(protocol.GameInProgress{})
	tr.push(protocol.RoundInProgress{
		Timer: 20,
		Question: protocol.Question{
			Name:    "Capital of France?",
			Options: []protocol.Option{{Name: "Paris", Correct: true}, {Name: "Lyon"}, {Name: "Nice"}, {Name: "Lille"}},
		},
	})
	tr.push(protocol.UserAnswered{UserID: 2, Option: 0})
	tr.push(protocol.UserAnswered{UserID: 3, Option: 2})

	snap := c.State()
	if snap.State.Phase != game.PhaseGraph {
		t.Fatalf("owner should watch the live graph, got %v", snap.State.Phase)
	}
	counts := game.TallyCounts(snap.State)
	if counts[0] != 1 || counts[2] != 1 {
		t.Fatalf("tally should show both answers: %v", counts)
	}

	if err := c.AdvanceRound(); !errors.Is(err, game.ErrWrongPhase) {
		t.Fatalf("advance mid-round must fail, got %v", err)
	}

	tr.push(protocol.RoundFinished{
		Options:     []protocol.Option{{Name: "Paris", Correct: true}, {Name: "Lyon"}, {Name: "Nice"}, {Name: "Lille"}},
		Leaderboard: map[uint]float64{1: 0, 2: 10, 3: 0},
	})
	if err := c.AdvanceRound(); err != nil {
		t.Fatalf("advance after reveal: %v", err)
	}

	tags := tr.sentTags()
	want := []string{protocol.TagStartGame, protocol.TagNextRound}
	if len(tags) != len(want) {
		t.Fatalf("want %v on the wire, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("frame %d: want %s, got %s", i, want[i], tags[i])
		}
	}
}

func TestClient_CreateAndJoinRoom(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/games", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body rest.GameBody
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(rest.Game{
			ID:         11,
			InviteCode: "NEW456",
			Topic:      body.Topic,
			RoundTime:  body.RoundTime,
			Points:     body.Points,
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	tr := &fakeTransport{}
	c := New(context.Background(), Config{
		Transport: tr,
		Rest:      rest.New(srv.URL, "tok", nil),
		LocalUser: protocol.User{ID: 1, Name: "host"},
	})
	t.Cleanup(c.Close)

	code, err := c.CreateAndJoinRoom(context.Background(), rest.GameBody{
		Topic:     "Capitals",
		RoundTime: 20,
		Points:    10,
	})
	if err != nil {
		t.Fatalf("create and join: %v", err)
	}
	if code != "NEW456" {
		t.Fatalf("want invite code NEW456, got %s", code)
	}

	tags := tr.sentTags()
	if len(tags) != 1 || tags[0] != protocol.TagJoinGame {
		t.Fatalf("want JOIN_GAME after create, got %v", tags)
	}
}
