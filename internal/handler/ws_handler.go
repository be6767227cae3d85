package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/estudy/estudy-backend/internal/middleware"
	"github.com/estudy/estudy-backend/internal/service"
	ws "github.com/estudy/estudy-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live attempt channel: autosave acknowledgements
// and instant grading over one socket.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/learner/tests/:test_id/stream
// Upgrades to WebSocket for real-time answer saving and instant grading.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	learnerID := claims.UserID

	// Reject the stream before reading anything if there is no live attempt.
	if err := h.attemptService.VerifyActive(c.Request.Context(), testID, learnerID); err != nil {
		ws.WriteError(conn, "no active attempt for this test")
		return
	}

	wsLog := h.log.With().
		Int("learner_id", learnerID).
		Str("test_id", testID.String()).
		Logger()

	wsLog.Info().Msg("Learner connected")

	for {
		var msg ws.RequestEnvelope
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, wsLog, testID, learnerID, &msg)
		case ws.ActionSubmit:
			if done := h.handleSubmit(conn, wsLog, testID, learnerID); done {
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAnswer saves one selection to Redis and queues it for persistence.
func (h *WSHandler) handleAnswer(conn *websocket.Conn, wsLog zerolog.Logger, testID uuid.UUID, learnerID int, msg *ws.RequestEnvelope) {
	ctx := context.Background()

	if msg.QuestionID == "" {
		ws.WriteError(conn, "question_id is required")
		return
	}

	// Validate IDs are well-formed UUIDs to keep junk out of the Redis hash.
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}

	optionIDs := make([]uuid.UUID, 0, len(msg.OptionIDs))
	for _, raw := range msg.OptionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			ws.WriteError(conn, "invalid option id format")
			return
		}
		optionIDs = append(optionIDs, id)
	}

	if err := h.attemptService.SaveAnswer(ctx, testID, learnerID, questionID, optionIDs); err != nil {
		wsLog.Error().Err(err).Msg("Answer save error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

// handleSubmit grades the attempt in RAM and pushes the result down the
// socket. Returns true when the stream should close.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, testID uuid.UUID, learnerID int) bool {
	ctx := context.Background()

	result, err := h.attemptService.Submit(ctx, testID, learnerID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "grading failed")
		return false
	}

	wsLog.Info().
		Float64("score", result.Percentage).
		Bool("passed", result.Passed).
		Msg("Attempt submitted and graded")

	ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Result: result})
	return true
}
