package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mindbridge-app/mindbridge-backend/internal/services"
)

type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage delivers a direct message to the user named in the URL.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	receiverID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	msg, err := messaging.Send(ctx, senderID, receiverID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

// ListConversations returns the caller's inbox, most recent first.
func ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	conversations, err := messaging.ListConversations(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"conversations": conversations,
	})
}

// GetThread returns one page of the thread with the user named in the URL,
// oldest first, and marks the whole thread read for the caller.
func GetThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	otherID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	ctx, cancel := requestContext()
	defer cancel()

	msgs, err := messaging.GetThread(ctx, userID, otherID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"conversation_id": services.ConversationID(userID, otherID),
		"messages":        msgs,
	})
}

// UnreadCount returns the caller's total unread message count.
func UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	count, err := messaging.UnreadCount(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   count,
	})
}

// DeleteMessage hard-deletes one of the caller's own messages.
func DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	messageID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := messaging.DeleteMessage(ctx, userID, messageID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Message deleted",
	})
}
