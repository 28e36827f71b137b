package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"treasurehunt-service/internal/app"
	"treasurehunt-service/internal/domain"
)

// WSHandler serves the play connection: a team scans arrival codes and
// submits answers over one websocket, and receives scoreboard pushes.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
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

type arrivalPayload struct {
	Code string `json:"code"`
}

type answerPayload struct {
	Code     string `json:"code"`
	OptionID string `json:"optionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message      string `json:"message"`
	ExpectedCode string `json:"expectedCode,omitempty"`
	Benign       bool   `json:"benign,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// progression engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("teamId")
	accessCode := r.URL.Query().Get("accessCode")
	if teamID == "" {
		http.Error(w, "missing teamId", http.StatusBadRequest)
		return
	}
	if err := h.service.Authenticate(r.Context(), teamID, accessCode); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := log.With().Str("conn", connID).Str("team", teamID).Logger()
	logger.Info().Msg("team connected")

	team, err := h.service.TeamState(r.Context(), teamID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := h.service.Subscribe(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Error().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "scoreboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "welcome", Payload: team}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "arrival":
			var payload arrivalPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid arrival payload"}}
				continue
			}
			outcome, err := h.service.SubmitArrivalCode(r.Context(), teamID, payload.Code)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: toErrorPayload(err)}
				continue
			}
			send <- outboundMessage[any]{Type: "arrivalResult", Payload: outcome}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			outcome, err := h.service.SubmitAnswer(r.Context(), teamID, payload.Code, payload.OptionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: toErrorPayload(err)}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	logger.Info().Msg("team disconnected")
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// toErrorPayload keeps the engine's error contract intact on the wire: a
// wrong code carries the expected one, and state-conflict rejections are
// flagged benign so clients can retry quietly.
func toErrorPayload(err error) errorPayload {
	var wrongCode *domain.WrongCodeError
	if errors.As(err, &wrongCode) {
		return errorPayload{Message: err.Error(), ExpectedCode: wrongCode.Expected}
	}
	benign := errors.Is(err, domain.ErrAlreadyAnswered) ||
		errors.Is(err, domain.ErrAlreadyComplete) ||
		errors.Is(err, domain.ErrEntryNoAnswer)
	return errorPayload{Message: err.Error(), Benign: benign}
}
