package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyashahama/safeserve-backend/internal/session"
)

// ─── POST /api/chat ───────────────────────────────────────────────────────────

type createChatRequest struct {
	// Role personalises the assistant, e.g. "School Admin". Optional.
	Role string `json:"role"`
}

type createChatResponse struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
}

// handleCreateChat opens a conversation. The session lives in memory until
// it sits idle past its TTL or is deleted.
func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !decode(w, r, &req) {
		return
	}

	id, chat, err := s.sessions.Create(strings.TrimSpace(req.Role))
	if errors.Is(err, session.ErrFull) {
		respondErr(w, http.StatusServiceUnavailable, "too many active chat sessions, try again later")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create chat: %w", err))
		return
	}

	respond(w, http.StatusCreated, createChatResponse{
		SessionID: id.String(),
		Role:      chat.Role(),
	})
}

// ─── GET /api/chat/:sessionID ─────────────────────────────────────────────────

type chatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatResponse struct {
	SessionID string     `json:"session_id"`
	Role      string     `json:"role"`
	History   []chatTurn `json:"history"`
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	chat, err := s.sessions.Get(id)
	if err != nil {
		respondErr(w, http.StatusNotFound, "chat session not found")
		return
	}

	history := chat.History()
	turns := make([]chatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, chatTurn{Role: string(m.Role), Text: m.Text})
	}
	respond(w, http.StatusOK, chatResponse{SessionID: id.String(), Role: chat.Role(), History: turns})
}

// ─── POST /api/chat/:sessionID/messages ───────────────────────────────────────

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageResponse struct {
	Reply string `json:"reply"`
}

// handleSendMessage forwards one user turn. Model failures surface as the
// apology reply with status 200, never as an HTTP error.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		respondErr(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	chat, err := s.sessions.Get(id)
	if err != nil {
		respondErr(w, http.StatusNotFound, "chat session not found")
		return
	}

	respond(w, http.StatusOK, sendMessageResponse{Reply: chat.SendMessage(r.Context(), message)})
}

// ─── DELETE /api/chat/:sessionID ──────────────────────────────────────────────

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	if !s.sessions.Delete(id) {
		respondErr(w, http.StatusNotFound, "chat session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
