package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/presbrey/flex/echoprom"
	"github.com/presbrey/flex/irc/history"
	"github.com/presbrey/flex/irc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, h *harness) (*App, *transport.Hub) {
	t.Helper()
	hub := transport.NewHub(h.srv, transport.DefaultConfig())
	t.Cleanup(hub.Close)
	return NewApp(h.srv, hub, echoprom.New()), hub
}

func get(t *testing.T, app *App, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	res := httptest.NewRecorder()
	app.Echo().ServeHTTP(res, req)
	return res
}

func decode(t *testing.T, res *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	app, _ := newTestApp(t, h)
	alice := h.register("alice")
	join(h, alice, "#go")

	res := get(t, app, "/healthz")
	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	decode(t, res, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["history"])
	assert.EqualValues(t, 1, body["clients"])
	assert.EqualValues(t, 1, body["channels"])
	assert.EqualValues(t, 0, body["sockets"])
}

type downRecorder struct {
	memRecorder
	pings int
}

func (r *downRecorder) Ping(context.Context) error {
	r.pings++
	return errors.New("connection refused")
}

func TestHealthReportsHistoryOutage(t *testing.T) {
	h := newHarness(t)
	rec := &downRecorder{}
	h.srv = NewServer(h.srv.Config(), WithRecorder(rec))
	app, _ := newTestApp(t, h)

	for range 3 {
		res := get(t, app, "/healthz")
		require.Equal(t, http.StatusOK, res.Code)
		var body map[string]any
		decode(t, res, &body)
		assert.Equal(t, "unavailable", body["history"])
	}
	assert.Equal(t, 1, rec.pings, "probe result is memoized")
}

func TestChannelsEndpoint(t *testing.T) {
	h := newHarness(t)
	app, _ := newTestApp(t, h)

	res := get(t, app, "/api/channels")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())

	alice := h.register("alice")
	join(h, alice, "#Go")
	h.send(alice, "TOPIC", map[string]any{"channel": "#go", "topic": "gophers"})

	var channels []ChannelInfo
	decode(t, get(t, app, "/api/channels"), &channels)
	assert.Equal(t, []ChannelInfo{{Name: "#Go", Users: 1, Topic: "gophers"}}, channels)
}

func TestHistoryEndpoints(t *testing.T) {
	h := newHarness(t)
	h.srv = NewServer(h.srv.Config(), WithRecorder(history.Nop{}))
	app, _ := newTestApp(t, h)

	res := get(t, app, "/api/channels/go/topics")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())

	res = get(t, app, "/api/channels/%23go/messages?limit=200")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())

	res = get(t, app, "/api/channels/go/messages?limit=500")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "limit must be at most 200")

	res = get(t, app, "/api/channels/go/messages?limit=0")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "limit must be at least 1")

	res = get(t, app, "/api/channels/go/messages?limit=many")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = get(t, app, "/api/channels/"+strings.Repeat("x", 40)+"/topics")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

type limitRecorder struct {
	memRecorder
	limits []int
}

func (r *limitRecorder) Messages(ctx context.Context, channel string, limit int) ([]history.MessageLog, error) {
	r.limits = append(r.limits, limit)
	return r.memRecorder.Messages(ctx, channel, limit)
}

func TestHistoryLimitDefault(t *testing.T) {
	h := newHarness(t)
	rec := &limitRecorder{}
	h.srv = NewServer(h.srv.Config(), WithRecorder(rec))
	app, _ := newTestApp(t, h)

	require.Equal(t, http.StatusOK, get(t, app, "/api/channels/go/messages").Code)
	require.Equal(t, http.StatusOK, get(t, app, "/api/channels/go/messages?limit=1").Code)
	assert.Equal(t, []int{defaultHistoryLimit, 1}, rec.limits)
}

func TestHistoryEndpointsReturnRecords(t *testing.T) {
	h := newHarness(t)
	app, _ := newTestApp(t, h)
	alice := h.register("alice")
	join(h, alice, "#go")
	h.send(alice, "TOPIC", map[string]any{"channel": "#go", "topic": "gophers"})

	var topics []history.TopicChange
	decode(t, get(t, app, "/api/channels/go/topics"), &topics)
	require.Len(t, topics, 1)
	assert.Equal(t, "gophers", topics[0].Text)
	assert.Equal(t, "alice!alice@10.0.0.5", topics[0].UpdatedBy)
}

func TestSessionEndpoint(t *testing.T) {
	h := newHarness(t)
	app, _ := newTestApp(t, h)
	alice := h.register("alice")
	join(h, alice, "#go", "#chat")
	token := h.client(alice).Token

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/api/session").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/api/session", "Authorization", "Bearer nope").Code)

	res := get(t, app, "/api/session", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	decode(t, res, &body)
	assert.Equal(t, "alice", body["nickname"])
	assert.Equal(t, "10.0.0.5", body["host"])
	assert.Equal(t, []any{"#chat", "#go"}, body["channels"])
	assert.Equal(t, false, body["oper"])

	h.send(alice, "QUIT", nil)
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/api/session", "Authorization", "Bearer "+token).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	app, _ := newTestApp(t, h)
	get(t, app, "/healthz")

	res := get(t, app, "/metrics")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "http_requests_total")
}

func TestSocketEndToEnd(t *testing.T) {
	h := newHarness(t)
	app, hub := newTestApp(t, h)
	ts := httptest.NewServer(app.Echo())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	write := func(event string, data any) {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(transport.Envelope{Event: event, Data: raw}))
	}
	read := func() transport.Envelope {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env transport.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		return env
	}

	write("CONNECT", map[string]any{"nickname": "alice", "username": "al", "realname": "Alice"})
	env := read()
	require.Equal(t, "RPL_WELCOME", env.Event)
	var welcome struct {
		Code   int    `json:"code"`
		Target string `json:"target"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &welcome))
	assert.Equal(t, 1, welcome.Code)
	assert.Equal(t, "alice", welcome.Target)
	assert.NotEmpty(t, welcome.Token)

	write("JOIN", map[string]any{"channels": []string{"#go"}})
	assert.Equal(t, "JOIN", read().Event)
	assert.Equal(t, "RPL_NAMREPLY", read().Event)
	assert.Equal(t, "RPL_ENDOFNAMES", read().Event)
	assert.Equal(t, 1, hub.Len())

	write("QUIT", map[string]any{"message": "bye"})
	assert.Equal(t, "QUIT", read().Event)

	require.Eventually(t, func() bool {
		return hub.Len() == 0 && h.srv.Sessions().Clients.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.srv.Sessions().Channels.Len())
}
