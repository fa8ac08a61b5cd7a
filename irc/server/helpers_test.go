package server

import (
	"context"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/presbrey/flex/irc/config"
	"github.com/presbrey/flex/irc/history"
	"github.com/presbrey/flex/irc/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	Event   string
	Payload any
}

// fakeNet routes room emits between fake sockets
type fakeNet struct {
	mu    sync.Mutex
	rooms map[string]map[*fakeSocket]struct{}
}

func newFakeNet() *fakeNet {
	return &fakeNet{rooms: make(map[string]map[*fakeSocket]struct{})}
}

func (n *fakeNet) members(room string) []*fakeSocket {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*fakeSocket, 0, len(n.rooms[room]))
	for s := range n.rooms[room] {
		out = append(out, s)
	}
	return out
}

func (n *fakeNet) roomSize(room string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.rooms[room])
}

type fakeSocket struct {
	net  *fakeNet
	id   string
	host string

	mu     sync.Mutex
	events []sent
	closed bool
}

func (s *fakeSocket) ID() string         { return s.id }
func (s *fakeSocket) RemoteHost() string { return s.host }

func (s *fakeSocket) Emit(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sent{event, payload})
	return nil
}

func (s *fakeSocket) EmitTo(room, event string, payload any) error {
	for _, member := range s.net.members(room) {
		member.Emit(event, payload)
	}
	return nil
}

func (s *fakeSocket) BroadcastTo(room, event string, payload any) error {
	for _, member := range s.net.members(room) {
		if member != s {
			member.Emit(event, payload)
		}
	}
	return nil
}

func (s *fakeSocket) Join(room string) {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	if s.net.rooms[room] == nil {
		s.net.rooms[room] = make(map[*fakeSocket]struct{})
	}
	s.net.rooms[room][s] = struct{}{}
}

func (s *fakeSocket) Leave(room string) {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	delete(s.net.rooms[room], s)
	if len(s.net.rooms[room]) == 0 {
		delete(s.net.rooms, room)
	}
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// take returns and clears the recorded events
func (s *fakeSocket) take() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}

// names lists recorded event names without clearing them
func (s *fakeSocket) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Event)
	}
	return out
}

// find returns the recorded events named event
func (s *fakeSocket) find(event string) []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sent
	for _, e := range s.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type memRecorder struct {
	mu       sync.Mutex
	topics   []history.TopicChange
	messages []history.MessageLog
}

func (r *memRecorder) RecordTopic(_ context.Context, change history.TopicChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, change)
	return nil
}

func (r *memRecorder) RecordMessage(_ context.Context, msg history.MessageLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memRecorder) Topics(context.Context, string, int) ([]history.TopicChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.TopicChange(nil), r.topics...), nil
}

func (r *memRecorder) Messages(context.Context, string, int) ([]history.MessageLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.MessageLog(nil), r.messages...), nil
}

type harness struct {
	t   *testing.T
	srv *Server
	net *fakeNet
	rec *memRecorder
}

func newHarness(t *testing.T, configure ...func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	for _, fn := range configure {
		fn(cfg)
	}
	rec := &memRecorder{}
	return &harness{
		t:   t,
		srv: NewServer(cfg, WithRecorder(rec)),
		net: newFakeNet(),
		rec: rec,
	}
}

func (h *harness) connect(host string) *fakeSocket {
	sock := &fakeSocket{net: h.net, id: string(session.NewClientID()), host: host}
	h.srv.Connect(sock)
	return sock
}

func (h *harness) send(sock *fakeSocket, event string, payload any) {
	h.t.Helper()
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		require.NoError(h.t, err)
	}
	h.srv.HandleEvent(sock, event, data)
}

// register connects and registers nickname, discarding the welcome
func (h *harness) register(nickname string) *fakeSocket {
	h.t.Helper()
	sock := h.connect("10.0.0.5")
	h.send(sock, "CONNECT", map[string]any{
		"nickname": nickname,
		"username": nickname,
		"realname": "Test " + nickname,
	})
	require.Len(h.t, sock.find("RPL_WELCOME"), 1, "registration of %s", nickname)
	sock.take()
	return sock
}

func (h *harness) client(sock *fakeSocket) session.Client {
	h.t.Helper()
	c, ok := h.srv.Sessions().Snapshot(clientID(sock))
	require.True(h.t, ok)
	return c
}

func (h *harness) channel(name string) (session.Channel, bool) {
	var out session.Channel
	ok := h.srv.Sessions().Channels.View(name, func(ch *session.Channel) {
		out = *ch
	})
	return out, ok
}
