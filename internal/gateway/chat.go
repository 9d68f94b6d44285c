package gateway

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nyashahama/safeserve-backend/internal/ai"
	"github.com/nyashahama/safeserve-backend/internal/contract"
	"github.com/nyashahama/safeserve-backend/internal/metrics"
	"github.com/nyashahama/safeserve-backend/internal/resilience"
)

// Fixed chat replies.
const (
	// ChatApology is returned when a send fails for any reason.
	ChatApology = "Quota exceeded or connection lost. Please wait a moment."

	// ChatEmptyReply is returned when the model answers with no text.
	ChatEmptyReply = "I'm having trouble connecting to the safety database. Please try again."
)

const chatSystemTemplate = "You are SafeServe AI, a food safety specialist for the MBG (Makan Bergizi Gratis) " +
	"program in Indonesia. You are assisting a user with the role: %s. Provide authoritative, concise, " +
	"and helpful safety advice following BPOM and BGN standards."

// ChatSession is one conversation with the safety assistant. History is held
// here and replayed on every send; the provider keeps no state.
//
// Sends on one session are serialized. Different sessions are independent
// apart from the shared quota breaker.
type ChatSession struct {
	g      *Gateway
	role   string
	system string

	mu      sync.Mutex
	history []ai.Message
}

// StartChat opens a conversation bound to role (e.g. "Regulator", "Vendor").
func (g *Gateway) StartChat(role string) *ChatSession {
	role = strings.TrimSpace(role)
	if role == "" {
		role = "General User"
	}
	return &ChatSession{
		g:      g,
		role:   role,
		system: fmt.Sprintf(chatSystemTemplate, role),
	}
}

// Role returns the role the session was opened with.
func (s *ChatSession) Role() string { return s.role }

// History returns a copy of the successful turns so far, oldest first.
func (s *ChatSession) History() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// SendMessage sends text and returns the assistant's reply. It never fails:
// any error yields ChatApology and an empty answer yields ChatEmptyReply.
// Only exchanges that produced a reply are added to the history.
func (s *ChatSession) SendMessage(ctx context.Context, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.g
	op := contract.OpChatSession
	start := time.Now()
	log := g.logger.With("operation", string(op), "role", s.role, "turns", len(s.history)/2)

	user := ai.Message{Role: ai.RoleUser, Text: text}
	req := ai.Request{
		System:   s.system,
		Messages: append(slices.Clone(s.history), user),
	}

	resp, err := resilience.Execute(ctx, g.exec, string(op), func(ctx context.Context) (ai.Response, error) {
		return g.gen.Generate(ctx, req)
	})
	if err != nil {
		g.recordFailure(log, op, err, time.Since(start))
		return ChatApology
	}

	reply := strings.TrimSpace(resp.Text)
	g.metrics.ObserveCall(string(op), metrics.OutcomeSuccess, time.Since(start))
	if reply == "" {
		log.Warn("gateway: chat reply was empty")
		return ChatEmptyReply
	}

	s.history = append(s.history, user, ai.Message{Role: ai.RoleModel, Text: reply})
	return reply
}
