// Package planloom - session.go
// Session owns the lifecycle of a single plan generation.

package planloom

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session holds ephemeral run state & references to global resources. One
// session handles exactly one goal and streams the agent's output back to
// the caller.
type Session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	inUserChannel  chan string
	outUserChannel chan Response

	llm    LLM
	model  string
	memory Memory
	agent  *Agent

	logger *slog.Logger
}

// NewSession constructs a session with references to shared LLM & memory,
// but isolated state.
func NewSession(ctx context.Context, llm LLM, model string, mem Memory, ag *Agent) *Session {
	sessionID, err := gonanoid.New()
	if err != nil {
		panic(err)
	}
	ctx, cancel := context.WithCancel(ctx)
	ctx = context.WithValue(ctx, ContextKey("sessionID"), sessionID)
	s := &Session{
		ctx:    ctx,
		cancel: cancel,

		inUserChannel:  make(chan string),
		outUserChannel: make(chan Response),

		llm:    llm,
		model:  model,
		memory: mem,
		agent:  ag,

		logger: slog.Default(),
	}
	go s.run()
	return s
}

func (s *Session) ID() string {
	return s.ctx.Value(ContextKey("sessionID")).(string)
}

// In submits the goal for this session. A session accepts exactly one goal.
func (s *Session) In(goal string) {
	select {
	case s.inUserChannel <- goal:
	case <-s.ctx.Done():
	}
}

// Out retrieves the next response, blocking until one is available. After
// Close it returns an end response.
func (s *Session) Out() Response {
	select {
	case response := <-s.outUserChannel:
		return response
	case <-s.ctx.Done():
		return Response{Type: ResponseTypeEnd}
	}
}

// send delivers a response unless the session has been closed.
func (s *Session) send(response Response) {
	select {
	case s.outUserChannel <- response:
	case <-s.ctx.Done():
	}
}

// Close ends the session lifecycle. The channels are left for the GC; a
// closed session's Out returns end responses.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
	})
}

// run is the main loop for the session. It waits for the goal, runs the
// agent, and forwards agent responses to the caller until the run finishes.
func (s *Session) run() {
	s.logger.Info("session started", "sessionID", s.ID())
	defer s.Close()
	select {
	case <-s.ctx.Done():
	case goal := <-s.inUserChannel:
		if strings.TrimSpace(goal) == "" {
			s.send(Response{Content: ErrEmptyGoal.Error(), Type: ResponseTypeError})
			s.send(Response{Type: ResponseTypeEnd})
			return
		}

		messages := NewMessageList(UserMessage(goal))

		memoryBlock, err := s.memory.Retrieve(s.ctx)
		if err != nil {
			s.logger.Error("retrieving memory", "error", err)
			memoryBlock = NewMemoryBlock()
		}

		internalChannel := make(chan Response)
		go s.agent.Run(s.ctx, s.llm, s.model, messages, memoryBlock, internalChannel)

		for response := range internalChannel {
			if response.Type == ResponseTypePlan && response.Plan != nil {
				response.Plan.ID = s.ID()
				response.Plan.CreatedAt = time.Now().UTC()
			}
			s.send(response)
			if response.Type == ResponseTypeError {
				break
			}
		}

		// Agent run is done, send the end message.
		s.send(Response{Type: ResponseTypeEnd})
	}
}
