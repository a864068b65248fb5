package chat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-app/inkwell/internal/ai"
	"github.com/inkwell-app/inkwell/internal/common"
)

// Store is the narrow persistence surface the coordinator needs. *Repo
// satisfies it; tests substitute fakes, including failing ones.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	InsertMessage(ctx context.Context, m *Message) error
	ListRecentMessagesDesc(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

type coordState int

const (
	stateIdle coordState = iota
	stateStreaming
)

// Turn is the deferred result of one submitted prompt. It resolves when the
// turn later reaches its terminal event, even if it spent time queued behind
// an earlier turn.
type Turn struct {
	MessageID string

	prompt      string
	ctx         context.Context
	submittedAt time.Time

	done chan struct{}
	msg  *Message
	err  error
}

func (t *Turn) Done() <-chan struct{} { return t.done }

// Result is valid once Done is closed.
func (t *Turn) Result() (*Message, error) { return t.msg, t.err }

func (t *Turn) Wait(ctx context.Context) (*Message, error) {
	select {
	case <-t.done:
		return t.msg, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Turn) succeed(msg *Message) {
	t.msg = msg
	close(t.done)
}

func (t *Turn) fail(err error) {
	t.err = err
	close(t.done)
}

// Coordinator owns the per-conversation serialization invariant: at most one
// turn streams at a time, prompts submitted meanwhile queue FIFO, and every
// turn ends with exactly one terminal event. All persistence failures degrade
// to warnings because the UI has already received the content.
type Coordinator struct {
	conversationID string
	store          Store
	provider       ai.StreamProvider
	emitter        Emitter
	window         int

	mu        sync.Mutex
	state     coordState
	sessionID string // cached active session, created lazily
	pending   []*Turn
	cancel    context.CancelFunc
}

func NewCoordinator(conversationID string, store Store, provider ai.StreamProvider, emitter Emitter, contextWindowSize int) *Coordinator {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	return &Coordinator{
		conversationID: conversationID,
		store:          store,
		provider:       provider,
		emitter:        emitter,
		window:         contextWindowSize,
	}
}

// Submit hands one prompt to the coordinator. When idle it starts streaming
// immediately; while streaming it queues the prompt instead of rejecting it,
// preserving follow-up intent without caller retries. The returned Turn
// resolves when this prompt's turn completes or fails. Submit never blocks
// on the stream and never panics on persistence problems.
func (c *Coordinator) Submit(ctx context.Context, prompt string) *Turn {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &Turn{
		MessageID:   uuid.NewString(),
		prompt:      prompt,
		ctx:         ctx,
		submittedAt: time.Now(),
		done:        make(chan struct{}),
	}

	c.mu.Lock()
	if c.state == stateStreaming {
		c.pending = append(c.pending, t)
		c.mu.Unlock()
		return t
	}
	c.state = stateStreaming
	c.mu.Unlock()

	go c.loop(t)
	return t
}

// Interrupt cancels the active stream, if any. The turn then takes the same
// path as a transport error: Error event, state dropped, queue advanced.
func (c *Coordinator) Interrupt() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// loop runs turns strictly one after another. Only the goroutine that moved
// the coordinator to Streaming runs it, so turns never interleave and the
// queue drains in submission order even across failed turns.
func (c *Coordinator) loop(t *Turn) {
	for t != nil {
		c.runTurn(t)

		c.mu.Lock()
		if len(c.pending) > 0 {
			t = c.pending[0]
			c.pending = c.pending[1:]
		} else {
			t = nil
			c.state = stateIdle
		}
		c.mu.Unlock()
	}
}

func (c *Coordinator) runTurn(t *Turn) {
	ctx, cancel := context.WithCancel(t.ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	c.emitter.Emit(StreamStart{MessageID: t.MessageID})

	chunks, errs := c.provider.StreamChat(ctx, c.providerContext(ctx, t.prompt))

	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk)
		c.emitter.Emit(StreamChunk{MessageID: t.MessageID, Content: chunk})
	}

	// Both channels are closed by now; a buffered error, if any, is still
	// readable. A nil read from the closed channel means a clean end.
	if err := <-errs; err != nil {
		c.emitter.Emit(ErrorEvent{Message: err.Error()})
		t.fail(err)
		return
	}

	c.emitter.Emit(StreamEnd{MessageID: t.MessageID})

	sessionID := c.ensureSession(t.ctx)

	now := time.Now()
	msg := &Message{
		MessageID:      t.MessageID,
		SessionID:      sessionID,
		ConversationID: c.conversationID,
		Role:           RoleAssistant,
		Content:        b.String(),
		CreatedAt:      now,
	}
	c.emitter.Emit(MessageEvent{
		MessageID: msg.MessageID,
		SessionID: sessionID,
		Role:      RoleAssistant,
		Content:   msg.Content,
		CreatedAt: now,
	})

	c.persistTurn(t.ctx, t, msg)
	t.succeed(msg)
}

// providerContext builds the provider message list: bounded recent history,
// oldest first, followed by the new prompt. History is best effort; the turn
// proceeds on just the prompt if the store cannot be read.
func (c *Coordinator) providerContext(ctx context.Context, prompt string) []ai.Message {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	var out []ai.Message
	if sessionID != "" {
		recentDesc, err := c.store.ListRecentMessagesDesc(ctx, sessionID, c.window)
		if err != nil {
			log.Printf("coordinator: history read failed conversation=%s err=%v", c.conversationID, err)
		}
		for i := len(recentDesc) - 1; i >= 0; i-- {
			out = append(out, ai.Message{Role: recentDesc[i].Role, Content: recentDesc[i].Content})
		}
	}
	return append(out, ai.Message{Role: RoleUser, Content: prompt})
}

// ensureSession returns the cached active session ID, creating and caching a
// session row on first use. Creation failure degrades to an empty session ID
// with a warning; the turn still completes.
func (c *Coordinator) ensureSession(ctx context.Context) string {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID != "" {
		return sessionID
	}

	sid, err := common.NewULID()
	if err != nil {
		log.Printf("coordinator: session id mint failed conversation=%s err=%v", c.conversationID, err)
		return ""
	}
	s := &Session{
		SessionID:      sid,
		ConversationID: c.conversationID,
		CreatedAt:      time.Now(),
	}
	if err := c.store.CreateSession(ctx, s); err != nil {
		log.Printf("coordinator: session create failed conversation=%s err=%v", c.conversationID, err)
		return ""
	}

	c.mu.Lock()
	c.sessionID = sid
	c.mu.Unlock()

	c.emitter.Emit(SessionStarted{SessionID: sid})
	return sid
}

// persistTurn appends the user prompt and the assistant message. Append
// failure is a warning, not a turn failure: the UI already received the
// content, and conversational continuity outranks synchronous durability.
func (c *Coordinator) persistTurn(ctx context.Context, t *Turn, assistant *Message) {
	if assistant.SessionID == "" {
		log.Printf("coordinator: skipping persistence, no session conversation=%s", c.conversationID)
		return
	}

	userMsg := &Message{
		MessageID:      uuid.NewString(),
		SessionID:      assistant.SessionID,
		ConversationID: c.conversationID,
		Role:           RoleUser,
		Content:        t.prompt,
		CreatedAt:      t.submittedAt,
	}
	if err := c.store.InsertMessage(ctx, userMsg); err != nil {
		log.Printf("coordinator: user message append failed conversation=%s err=%v", c.conversationID, err)
	}
	if err := c.store.InsertMessage(ctx, assistant); err != nil {
		log.Printf("coordinator: assistant message append failed conversation=%s err=%v", c.conversationID, err)
	}
}
