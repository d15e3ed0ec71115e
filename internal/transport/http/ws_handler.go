package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"hardbrain-quiz/internal/app"
	"hardbrain-quiz/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const sendBuffer = 32

// HandlerConfig tunes per-connection behaviour.
type HandlerConfig struct {
	// BotName is the quiz's own display name; guesses under it are ignored.
	BotName string
	// AnswerRate and AnswerBurst bound how fast one connection may guess.
	AnswerRate  float64
	AnswerBurst int
}

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	cfg      HandlerConfig
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub, cfg HandlerConfig, log zerolog.Logger) *WSHandler {
	if cfg.AnswerRate <= 0 {
		cfg.AnswerRate = 2
	}
	if cfg.AnswerBurst <= 0 {
		cfg.AnswerBurst = 5
	}
	return &WSHandler{
		service: service,
		hub:     hub,
		cfg:     cfg,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Rounds int `json:"rounds"`
	// TimeLimit is in seconds.
	TimeLimit int    `json:"timeLimit"`
	Versions  string `json:"versions"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type infoPayload struct {
	Message string `json:"message"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz commands.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channelId")
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if channelID == "" || player == "" {
		http.Error(w, "missing channelId or player", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{
		id:        uuid.NewString(),
		channelID: channelID,
		player:    player,
		send:      make(chan frame, sendBuffer),
	}
	log := h.log.With().Str("conn", c.id).Str("channel", channelID).Str("player", player).Logger()
	h.hub.register(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for f := range c.send {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(f.kind, f.data); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				// keep draining so the hub never blocks on this client
				for range c.send {
				}
				return
			}
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(h.cfg.AnswerRate), h.cfg.AnswerBurst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, c, limiter, inbound, log)
	}

	h.hub.unregister(c)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, c *client, limiter *rate.Limiter, inbound inboundMessage, log zerolog.Logger) {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		var payload startPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.reply(c, "error", errorPayload{Message: "invalid start payload"})
				return
			}
		}
		_, err := h.service.StartSession(ctx, app.StartRequest{
			ChannelID:   c.channelID,
			VoiceTarget: c.channelID,
			Rounds:      payload.Rounds,
			TimeLimit:   time.Duration(payload.TimeLimit) * time.Second,
			Versions:    payload.Versions,
			Notifier:    h.hub.Notifier(c.channelID),
		})
		if err != nil {
			log.Info().Err(err).Msg("start rejected")
			h.reply(c, "error", errorPayload{Message: describe(err)})
			return
		}
		h.reply(c, "info", infoPayload{Message: "Starting quiz..."})
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.reply(c, "error", errorPayload{Message: "invalid answer payload"})
			return
		}
		if strings.EqualFold(c.player, h.cfg.BotName) {
			return
		}
		if !limiter.Allow() {
			log.Debug().Msg("answer rate limited")
			return
		}
		// guesses with no quiz running are plain chat
		if err := h.service.SubmitAnswer(ctx, c.channelID, c.player, payload.Text); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			log.Warn().Err(err).Msg("answer dropped")
		}
	case "skip":
		if err := h.service.SkipRound(ctx, c.channelID); err != nil {
			h.reply(c, "error", errorPayload{Message: describe(err)})
			return
		}
		h.reply(c, "info", infoPayload{Message: "Skipping round..."})
	case "end":
		if err := h.service.EndSession(ctx, c.channelID); err != nil {
			h.reply(c, "error", errorPayload{Message: describe(err)})
			return
		}
		_ = h.hub.broadcastJSON(c.channelID, outboundMessage[infoPayload]{Type: "info", Payload: infoPayload{Message: "Cancelled quiz"}})
	case "scores":
		entries, err := h.service.GetScores(ctx, c.channelID)
		if err != nil {
			h.reply(c, "error", errorPayload{Message: describe(err)})
			return
		}
		h.reply(c, "message", app.CurrentScoresMessage(entries, h.service.ScoreboardSize()))
	default:
		h.reply(c, "error", errorPayload{Message: "unsupported message type"})
	}
}

// reply queues a message for this connection only.
func (h *WSHandler) reply(c *client, typ string, payload any) {
	data, err := json.Marshal(outboundMessage[any]{Type: typ, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Msg("encode reply")
		return
	}
	h.hub.sendTo(c, frame{kind: websocket.TextMessage, data: data})
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNoActiveRound):
		return "There is no quiz in progress"
	case errors.Is(err, domain.ErrAlreadyInProgress):
		return "A quiz is already in progress in this channel"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "An error occurred while loading songs, please try again later"
	case errors.Is(err, domain.ErrNoQuestions):
		return "No songs matched the requested versions"
	default:
		return err.Error()
	}
}
