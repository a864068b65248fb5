package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell/internal/chat"
	"github.com/inkwell-app/inkwell/internal/common"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}

func (h *Handler) Ping(c *gin.Context) {
	ok(c, gin.H{"status": "healthy"})
}

func (h *Handler) ListSessions(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if conversationID == "" {
		fail(c, http.StatusBadRequest, 10002, "conversation_id required")
		return
	}

	sessions, err := h.Repo.ListSessions(c.Request.Context(), conversationID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 50002, "failed to list sessions")
		return
	}
	ok(c, gin.H{"sessions": sessions})
}

func (h *Handler) ListMessages(c *gin.Context) {
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.Repo.ListMessages(c.Request.Context(), sessionID, limit, beforeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 40004, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	ok(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}

type submitReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
}

// relayed pairs one validated bridge event with its serialized payload.
type relayed struct {
	name    string
	payload json.RawMessage
}

// streamSink buffers bridged events for one SSE request. Deliver blocks
// rather than drops while the request is draining, and unblocks permanently
// once the request is gone.
type streamSink struct {
	ch     chan relayed
	closed chan struct{}
}

func newStreamSink() *streamSink {
	return &streamSink{
		ch:     make(chan relayed, 64),
		closed: make(chan struct{}),
	}
}

func (s *streamSink) Deliver(name string, payload json.RawMessage) {
	select {
	case s.ch <- relayed{name: name, payload: payload}:
	case <-s.closed:
	}
}

// SendMessageStream submits one prompt and relays the bridged event sequence
// for the turn over SSE.
func (h *Handler) SendMessageStream(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	flusher, okk := c.Writer.(http.Flusher)
	if !okk {
		fail(c, http.StatusInternalServerError, 50003, "streaming unsupported")
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind a proxy
	c.Status(http.StatusOK)

	sink := newStreamSink()
	cancel := h.Bridge.Subscribe(sink)
	defer func() {
		cancel()
		close(sink.closed)
	}()

	// A client disconnect cancels the turn's context, which the coordinator
	// handles exactly like a transport error.
	turn := h.Coordinators.Coordinator(req.ConversationID).Submit(c.Request.Context(), req.Message)

	writeEvent := func(name string, payload json.RawMessage) {
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, payload)
		flusher.Flush()
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case ev := <-sink.ch:
			writeEvent(ev.name, ev.payload)

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			flusher.Flush()

		case <-turn.Done():
			// all of this turn's events are already queued; drain them
			for {
				select {
				case ev := <-sink.ch:
					writeEvent(ev.name, ev.payload)
					continue
				default:
				}
				break
			}
			_, err := turn.Result()
			done, _ := json.Marshal(gin.H{"message_id": turn.MessageID, "ok": err == nil})
			writeEvent("done", done)
			return

		case <-ctx.Done():
			return
		}
	}
}

// SendMessageAsync persists a turn job and hands it to the worker queue.
func (h *Handler) SendMessageAsync(c *gin.Context) {
	if h.Rabbit == nil {
		fail(c, http.StatusServiceUnavailable, 50301, "async path not configured")
		return
	}

	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		log.Printf("[SendMessageAsync] NewULID failed conversation=%s err=%v", req.ConversationID, err)
		fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &chat.TurnJob{
		ID:             jobID,
		ConversationID: req.ConversationID,
		Prompt:         req.Message,
		Status:         chat.JobQueued,
	}
	if err := h.Repo.CreateJob(c.Request.Context(), j); err != nil {
		log.Printf("[SendMessageAsync] CreateJob failed conversation=%s job_id=%s err=%v", req.ConversationID, jobID, err)
		fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if err := h.Rabbit.PublishJob(c.Request.Context(), j.ID); err != nil {
		log.Printf("[SendMessageAsync] PublishJob failed conversation=%s job_id=%s err=%v", req.ConversationID, j.ID, err)
		fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
		return
	}

	ok(c, gin.H{"job_id": j.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.Repo.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	ok(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"conversation_id":   j.ConversationID,
			"status":            j.Status,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}

type interruptReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

// Interrupt cancels the conversation's active stream, if any. The turn then
// ends with an error event exactly like a transport failure.
func (h *Handler) Interrupt(c *gin.Context) {
	var req interruptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	h.Coordinators.Coordinator(req.ConversationID).Interrupt()
	ok(c, nil)
}
