package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/middleware"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/service"
	ws "github.com/certiva/examportal-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
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

// WSHandler streams one attempt over a WebSocket: autosave, incident
// reporting, heartbeat and final submission on a single connection.
type WSHandler struct {
	rdb             *redis.Client
	attemptService  *service.AttemptService
	stateService    *service.AttemptStateService
	incidentService *service.IncidentService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	rdb *redis.Client,
	attemptService *service.AttemptService,
	stateService *service.AttemptStateService,
	incidentService *service.IncidentService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		rdb:             rdb,
		attemptService:  attemptService,
		stateService:    stateService,
		incidentService: incidentService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), attemptID)
	if err != nil || attempt.StudentID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if attempt.Status != model.AttemptStatusInProgress {
		ws.WriteError(conn, "attempt is not in progress")
		return
	}

	wsLog := h.log.With().
		Int("student_id", attempt.StudentID).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionPing:
			_ = h.stateService.Heartbeat(context.Background(), attemptID)
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, attemptID, raw)
		case ws.ActionIncident:
			if closed := h.handleIncident(conn, wsLog, attempt, raw); closed {
				return
			}
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, attempt, raw)
			return
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, raw []byte) {
	var req ws.AutosaveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed autosave")
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}
	if req.SelectedOption < 0 || req.SelectedOption >= model.MaxOptions {
		ws.WriteError(conn, "selected_option out of range")
		return
	}

	if err := h.stateService.SaveAnswer(context.Background(), attemptID, questionID, req.SelectedOption); err != nil {
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

// handleIncident records the violation and, when it trips the threshold,
// notifies the student and closes the stream. Returns true when the
// connection should close.
func (h *WSHandler) handleIncident(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, raw []byte) bool {
	var req ws.IncidentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed incident")
		return false
	}

	ctx := context.Background()
	report, err := h.incidentService.Report(ctx, attempt.ID, model.ReportIncidentRequest{
		Type:    req.Type,
		Details: req.Details,
	})
	if err != nil {
		wsLog.Error().Err(err).Msg("Incident report error")
		ws.WriteError(conn, "incident not recorded")
		return false
	}

	h.publishMonitorEvent(ctx, attempt, "incident", map[string]interface{}{
		"incident_type": report.Incident.Type,
		"running_count": report.RunningCount,
		"suspended":     report.Suspended,
	})

	if report.Suspended {
		ws.WriteTyped(conn, ws.SuspendedResponse{
			Event:        ws.EventSuspended,
			RunningCount: report.RunningCount,
		})
		wsLog.Warn().Int("running_count", report.RunningCount).Msg("Attempt suspended, closing stream")
		return true
	}

	ws.WriteTyped(conn, ws.IncidentAckResponse{
		Event:        ws.EventIncidentAck,
		RunningCount: report.RunningCount,
	})
	return false
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, raw []byte) {
	var req ws.SubmitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed submit")
		return
	}

	answers := make([]model.AnswerSubmission, 0, len(req.Answers))
	for _, a := range req.Answers {
		questionID, err := uuid.Parse(a.QuestionID)
		if err != nil {
			ws.WriteError(conn, "invalid question_id in answers")
			return
		}
		answers = append(answers, model.AnswerSubmission{
			QuestionID:     questionID,
			SelectedOption: a.SelectedOption,
		})
	}

	ctx := context.Background()
	result, err := h.attemptService.SubmitAttempt(ctx, attempt.ID, answers)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "submit failed")
		return
	}

	_ = h.stateService.ClearAttemptCache(ctx, attempt.ID)

	h.publishMonitorEvent(ctx, attempt, "submitted", map[string]interface{}{
		"score":      result.Score,
		"percentage": result.Percentage,
		"passed":     result.Passed,
	})

	score := 0
	if result.Score != nil {
		score = *result.Score
	}
	percentage := 0.0
	if result.Percentage != nil {
		percentage = *result.Percentage
	}
	passed := false
	if result.Passed != nil {
		passed = *result.Passed
	}

	wsLog.Info().Int("score", score).Float64("percentage", percentage).Bool("passed", passed).Msg("Attempt submitted")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:      ws.EventGraded,
		Score:      score,
		Percentage: percentage,
		Passed:     passed,
	})
}

// publishMonitorEvent pushes a live event to the exam's monitor channel.
// Best effort; the periodic SSE refresh covers any dropped event.
func (h *WSHandler) publishMonitorEvent(ctx context.Context, attempt *model.Attempt, kind string, data map[string]interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":       kind,
		"student_id": attempt.StudentID,
		"attempt_id": attempt.ID.String(),
		"data":       data,
	})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(attempt.ExamID.String()), payload).Err(); err != nil {
		h.log.Debug().Err(err).Msg("Monitor publish failed")
	}
}
