// Package webhook receives pushed transaction events over HTTP and hands
// them to the dispatcher.
package webhook

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart-wallet-tracker/internal/domain"
	"smart-wallet-tracker/internal/observability"
	"smart-wallet-tracker/internal/tracker"
)

// maxBodyBytes bounds webhook payload size.
const maxBodyBytes = 4 << 20

// envelope is the categorized delivery shape some producers send instead of
// a bare event array.
type envelope struct {
	Events struct {
		Swaps     []domain.TransactionEvent `json:"swaps"`
		Transfers []domain.TransactionEvent `json:"transfers"`
		Unknown   []domain.TransactionEvent `json:"unknown"`
	} `json:"events"`
}

// Server exposes the webhook receiver plus health and status endpoints.
type Server struct {
	dispatcher *tracker.Dispatcher
	logger     *log.Logger
	engine     *gin.Engine
	startedAt  time.Time
}

// NewServer builds the HTTP surface around a dispatcher.
func NewServer(dispatcher *tracker.Dispatcher, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		dispatcher: dispatcher,
		logger:     logger,
		engine:     engine,
		startedAt:  time.Now(),
	}

	engine.POST("/webhook", s.handleWebhook)
	engine.GET("/health", s.handleHealth)
	engine.GET("/status", s.handleStatus)

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// handleWebhook ingests a delivery. Any syntactically acceptable request is
// answered 200, including empty and unparseable bodies: a push provider
// retries non-200 responses, and redelivering a bad payload cannot make it
// parseable.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		observability.RecordWebhookDelivery("invalid")
		c.JSON(200, gin.H{"status": "no data"})
		return
	}

	events := decodeDelivery(body)
	if len(events) == 0 {
		observability.RecordWebhookDelivery("empty")
		c.JSON(200, gin.H{"status": "no data"})
		return
	}

	observability.RecordWebhookDelivery("accepted")
	alerted := s.dispatcher.ProcessDelivery(c.Request.Context(), tracker.PathWebhook, events)
	if alerted > 0 {
		s.logger.Printf("webhook delivery: %d events, %d alerts", len(events), alerted)
	}

	c.JSON(200, gin.H{"status": "ok", "events": len(events), "alerts": alerted})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "smart-wallet-tracker",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	stats := s.dispatcher.Stats()
	c.JSON(200, gin.H{
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"stats":          stats,
	})
}

// decodeDelivery accepts either a bare event array or the categorized
// envelope. Anything else decodes to no events.
func decodeDelivery(body []byte) []domain.TransactionEvent {
	var events []domain.TransactionEvent
	if err := json.Unmarshal(body, &events); err == nil {
		return events
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		merged := make([]domain.TransactionEvent, 0,
			len(env.Events.Swaps)+len(env.Events.Transfers)+len(env.Events.Unknown))
		merged = append(merged, env.Events.Swaps...)
		merged = append(merged, env.Events.Transfers...)
		merged = append(merged, env.Events.Unknown...)
		return merged
	}

	return nil
}
