// Package transport carries named JSON events over websockets. Sockets can
// join rooms; an event can go to one socket or fan out to a room.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/presbrey/flex/logging"
	"github.com/presbrey/flex/syncmap"
)

var (
	ErrClosed     = errors.New("transport: socket closed")
	ErrBufferFull = errors.New("transport: send buffer full")
)

// Envelope is the wire frame in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives socket lifecycle and inbound events. OnEvent calls for one
// socket are sequential.
type Handler interface {
	OnConnect(s *Socket)
	OnEvent(s *Socket, event string, data []byte)
	OnDisconnect(s *Socket)
}

// Config tunes the websocket connections
type Config struct {
	MaxMessageSize int64
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConfig returns the stock connection settings
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: 8 << 10,
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
	}
}

// Hub owns the live sockets and the room index
type Hub struct {
	handler  Handler
	cfg      Config
	upgrader websocket.Upgrader
	sockets  *syncmap.Map[string, *Socket]
	rooms    *syncmap.Map[string, map[*Socket]struct{}]
	wg       sync.WaitGroup
}

// NewHub creates a hub delivering events to handler
func NewHub(handler Handler, cfg Config) *Hub {
	def := DefaultConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}

	return &Hub{
		handler: handler,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		sockets: syncmap.New[string, *Socket](),
		rooms:   syncmap.New[string, map[*Socket]struct{}](),
	}
}

// ServeWS upgrades the request and serves the socket until it disconnects.
// remoteHost is the client address recorded on the socket.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, remoteHost string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("transport: upgrade: %w", err)
	}

	s := &Socket{
		id:     uuid.NewString(),
		remote: remoteHost,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.cfg.SendBuffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
	h.sockets.Insert(s.id, s)
	h.wg.Add(1)
	defer h.wg.Done()

	h.handler.OnConnect(s)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	s.readPump()

	s.Close()
	<-writerDone
	h.remove(s)
	h.handler.OnDisconnect(s)
	return nil
}

func (h *Hub) remove(s *Socket) {
	for _, room := range s.Rooms() {
		s.Leave(room)
	}
	h.sockets.Remove(s.id)
}

// Len returns the number of live sockets
func (h *Hub) Len() int {
	return h.sockets.Len()
}

// RoomSize returns the number of sockets in room
func (h *Hub) RoomSize(room string) int {
	n := 0
	h.rooms.View(room, func(members *map[*Socket]struct{}) {
		n = len(*members)
	})
	return n
}

// Close disconnects every socket and waits for their handlers to finish
func (h *Hub) Close() {
	for _, s := range h.snapshot() {
		s.Close()
	}
	h.wg.Wait()
}

func (h *Hub) snapshot() []*Socket {
	var out []*Socket
	for _, s := range h.sockets.Range() {
		out = append(out, *s)
	}
	return out
}

func (h *Hub) members(room string) []*Socket {
	var out []*Socket
	h.rooms.View(room, func(members *map[*Socket]struct{}) {
		out = make([]*Socket, 0, len(*members))
		for s := range *members {
			out = append(out, s)
		}
	})
	return out
}

// Socket is one websocket connection
type Socket struct {
	id     string
	remote string
	hub    *Hub
	conn   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	rooms map[string]struct{}
}

func (s *Socket) ID() string         { return s.id }
func (s *Socket) RemoteHost() string { return s.remote }

// Emit sends one event to this socket
func (s *Socket) Emit(event string, payload any) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}
	return s.enqueue(frame)
}

// EmitTo sends one event to every socket in room, including this one if it
// joined. The first delivery error is returned after trying every member.
func (s *Socket) EmitTo(room, event string, payload any) error {
	return s.fanout(room, event, payload, false)
}

// BroadcastTo is EmitTo without this socket
func (s *Socket) BroadcastTo(room, event string, payload any) error {
	return s.fanout(room, event, payload, true)
}

func (s *Socket) fanout(room, event string, payload any, skipSelf bool) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}

	var firstErr error
	for _, member := range s.hub.members(room) {
		if skipSelf && member == s {
			continue
		}
		if err := member.enqueue(frame); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("socket %s: %w", member.id, err)
		}
	}
	return firstErr
}

// Join adds the socket to room
func (s *Socket) Join(room string) {
	s.mu.Lock()
	s.rooms[room] = struct{}{}
	s.mu.Unlock()

	ref, _ := s.hub.rooms.Upsert(room, func() map[*Socket]struct{} {
		return make(map[*Socket]struct{})
	})
	(*ref.Value())[s] = struct{}{}
	ref.Release()
}

// Leave removes the socket from room, dropping the room once empty
func (s *Socket) Leave(room string) {
	s.mu.Lock()
	delete(s.rooms, room)
	s.mu.Unlock()

	ref, ok := s.hub.rooms.GetMut(room)
	if !ok {
		return
	}
	defer ref.Release()

	members := *ref.Value()
	delete(members, s)
	if len(members) == 0 {
		ref.Delete()
	}
}

// Rooms returns the rooms the socket joined
func (s *Socket) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		out = append(out, room)
	}
	return out
}

// Close flushes queued events and closes the connection. It is safe to call
// more than once.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

func (s *Socket) enqueue(frame []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.send <- frame:
		return nil
	default:
		return ErrBufferFull
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

func (s *Socket) readPump() {
	log := logging.With("transport")
	cfg := s.hub.cfg

	s.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Str("socket", s.id).Err(err).Msg("read failed")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			log.Debug().Str("socket", s.id).Msg("discarding malformed frame")
			continue
		}

		s.hub.handler.OnEvent(s, env.Event, env.Data)

		select {
		case <-s.done:
			return
		default:
		}
	}
}

func (s *Socket) writePump() {
	cfg := s.hub.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			if !s.write(frame) {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			// flush what was queued before the close
			for {
				select {
				case frame := <-s.send:
					if !s.write(frame) {
						return
					}
				default:
					_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
					_ = s.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (s *Socket) write(frame []byte) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		logging.Debug().Str("socket", s.id).Err(err).Msg("write failed")
		return false
	}
	return true
}
