package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"hardbrain-quiz/internal/app"
	"hardbrain-quiz/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errVoiceClosed = errors.New("voice connection closed")

type frame struct {
	kind int
	data []byte
}

type client struct {
	id        string
	channelID string
	player    string
	send      chan frame
}

// Hub groups websocket clients by channel. It is the quiz's Notifier (JSON
// messages) and Playback (binary audio frames) for websocket players.
type Hub struct {
	log      zerolog.Logger
	mu       sync.RWMutex
	channels map[string]map[*client]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{log: log, channels: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[c.channelID]
	if !ok {
		members = make(map[*client]struct{})
		h.channels[c.channelID] = members
	}
	members[c] = struct{}{}
	h.log.Debug().Str("conn", c.id).Str("channel", c.channelID).Int("members", len(members)).Msg("client joined")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[c.channelID]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	close(c.send)
	h.log.Debug().Str("conn", c.id).Str("channel", c.channelID).Msg("client left")
	if len(members) == 0 {
		delete(h.channels, c.channelID)
	}
}

// Members reports how many clients are connected to channelID.
func (h *Hub) Members(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelID])
}

func (h *Hub) broadcast(channelID string, f frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channelID] {
		enqueue(c, f)
	}
}

// enqueue never blocks; when c is backed up its oldest frame is dropped.
func enqueue(c *client, f frame) {
	select {
	case c.send <- f:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- f:
	default:
	}
}

// sendTo queues f for c alone. Frames for a client that already left are dropped.
func (h *Hub) sendTo(c *client, f frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.channels[c.channelID][c]; !ok {
		return
	}
	enqueue(c, f)
}

func (h *Hub) broadcastJSON(channelID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.broadcast(channelID, frame{kind: websocket.TextMessage, data: data})
	return nil
}

// Notifier returns the announcer for channelID.
func (h *Hub) Notifier(channelID string) app.Notifier {
	return channelNotifier{hub: h, channelID: channelID}
}

type channelNotifier struct {
	hub       *Hub
	channelID string
}

func (n channelNotifier) Send(_ context.Context, msg domain.Message) error {
	return n.hub.broadcastJSON(n.channelID, outboundMessage[domain.Message]{Type: "message", Payload: msg})
}

// Connect implements app.Playback; audio is streamed to every client in the target channel.
func (h *Hub) Connect(_ context.Context, target string) (app.Voice, error) {
	return &channelVoice{hub: h, channelID: target}, nil
}

type channelVoice struct {
	hub       *Hub
	channelID string

	mu      sync.Mutex
	playing bool
	closed  bool
}

func (v *channelVoice) Play(audio io.Reader) error {
	data, err := io.ReadAll(audio)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return errVoiceClosed
	}
	v.hub.broadcast(v.channelID, frame{kind: websocket.BinaryMessage, data: data})
	v.playing = true
	return nil
}

func (v *channelVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *channelVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return nil
	}
	v.playing = false
	return v.hub.broadcastJSON(v.channelID, outboundMessage[struct{}]{Type: "stop"})
}

func (v *channelVoice) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.playing = false
	return v.hub.broadcastJSON(v.channelID, outboundMessage[struct{}]{Type: "disconnect"})
}
