package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessagePreviewLength caps the content preview embedded in notifications.
const MessagePreviewLength = 50

// DefaultThreadPageSize is the page size used when the caller passes none.
const DefaultThreadPageSize = 50

// ConversationID derives the stable thread identifier for two users: the two
// hex ids sorted lexicographically and joined by "_". Symmetric by
// construction, so either participant resolves the same thread.
func ConversationID(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if x > y {
		x, y = y, x
	}
	return x + "_" + y
}

// MessageStore is the persistence surface the messaging service needs.
type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	// ByConversation returns a page of a thread, newest first.
	ByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]models.Message, error)
	// Touching returns every message where the user is sender or receiver.
	Touching(ctx context.Context, userID primitive.ObjectID) ([]models.Message, error)
	// MarkConversationRead flips read=false to true for every message in the
	// conversation addressed to the receiver. Idempotent.
	MarkConversationRead(ctx context.Context, conversationID string, receiver primitive.ObjectID) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountUnread(ctx context.Context, receiver primitive.ObjectID) (int64, error)
}

// BlockStore is the persistence surface for block rows.
type BlockStore interface {
	// ExistsBetween reports a block in either direction.
	ExistsBetween(ctx context.Context, a, b primitive.ObjectID) (bool, error)
	// Exists reports a block for the exact (blocker, blocked) pair.
	Exists(ctx context.Context, blocker, blocked primitive.ObjectID) (bool, error)
	Insert(ctx context.Context, block *models.Block) error
	// Remove deletes the (blocker, blocked) row if present; absent is not an error.
	Remove(ctx context.Context, blocker, blocked primitive.ObjectID) error
	// PartnersOf returns every user the given user has a block with, in
	// either direction.
	PartnersOf(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]struct{}, error)
	ListByBlocker(ctx context.Context, blocker primitive.ObjectID) ([]models.Block, error)
}

// UserGetter resolves user records for identity display and visibility checks.
type UserGetter interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// NotificationEmitter writes a notification record as a handler side effect.
type NotificationEmitter interface {
	Emit(ctx context.Context, n *models.Notification) error
}

/// MessagingService implements the direct-message conversation model:
// block-aware delivery, unread tracking, deterministic thread grouping.
type MessagingService struct {
	Messages MessageStore
	Blocks   BlockStore
	Users    UserGetter
	Notify   NotificationEmitter
}

// MessageView is a message with sender/receiver identities resolved.
type MessageView struct {
	ID             primitive.ObjectID `json:"id"`
	ConversationID string             `json:"conversation_id"`
	Sender         models.UserSummary `json:"sender"`
	Receiver       models.UserSummary `json:"receiver"`
	Content        string             `json:"content"`
	Read           bool               `json:"read"`
	CreatedAt      time.Time          `json:"created_at"`
}

// ConversationPartner is the counterpart identity shown in the inbox.
type ConversationPartner struct {
	ID            primitive.ObjectID `json:"id"`
	DisplayName   string             `json:"display_name"`
	Avatar        string             `json:"avatar,omitempty"`
	IsOnline      bool               `json:"is_online"`
	LastSeen      time.Time          `json:"last_seen"`
	AllowMessages bool               `json:"allow_messages"`
}

// LastMessage summarizes the most recent message of a conversation.
type LastMessage struct {
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"created_at"`
	Sender    primitive.ObjectID `json:"sender"`
	Read      bool               `json:"read"`
}

// ConversationSummary is one inbox row.
type ConversationSummary struct {
	ConversationID string              `json:"conversation_id"`
	OtherUser      ConversationPartner `json:"other_user"`
	LastMessage    LastMessage         `json:"last_message"`
	UnreadCount    int                 `json:"unread_count"`
}

// BlockedUser is one row of the caller's block list.
type BlockedUser struct {
	ID          primitive.ObjectID `json:"id"`
	DisplayName string             `json:"display_name"`
	Avatar      string             `json:"avatar,omitempty"`
	BlockedAt   time.Time          `json:"blocked_at"`
	Reason      string             `json:"reason,omitempty"`
}

// Send delivers a direct message. Fails with a validation error on empty
// content or self-messaging, and with a forbidden error when a block exists
// in either direction or the receiver has disabled messages.
func (s *MessagingService) Send(ctx context.Context, senderID, receiverID primitive.ObjectID, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.Validation("message content is required")
	}
	if senderID == receiverID {
		return nil, apperrors.Validation("cannot message yourself")
	}

	blocked, err := s.Blocks.ExistsBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperrors.Forbidden("cannot send message to this user")
	}

	receiver, err := s.Users.Get(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, apperrors.NotFound("user not found")
	}
	if !receiver.ProfileVisibility.AllowMessages {
		return nil, apperrors.Forbidden("this user has disabled messages")
	}

	sender, err := s.Users.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, apperrors.NotFound("user not found")
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:             primitive.NewObjectID(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Sender:         senderID,
		Receiver:       receiverID,
		Content:        content,
		Read:           false,
		ConversationID: ConversationID(senderID, receiverID),
	}
	if err := s.Messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	notif := &models.Notification{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
		User:      receiverID,
		Type:      "New Message",
		Message:   sender.DisplayName + " sent you a message",
		Meta:      models.NewMessageMeta(senderID, sender.DisplayName, previewOf(content)),
	}
	if err := s.Notify.Emit(ctx, notif); err != nil {
		// The message is already persisted; a lost notification is acceptable.
		log.Printf("failed to emit message notification: %v", err)
	}

	return &MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         sender.Summary(),
		Receiver:       receiver.Summary(),
		Content:        msg.Content,
		Read:           msg.Read,
		CreatedAt:      msg.CreatedAt,
	}, nil
}

// ListConversations groups the user's messages into inbox rows, newest
// activity first. Conversations with a blocked counterpart (either
// direction) are omitted entirely.
func (s *MessagingService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]ConversationSummary, error) {
	msgs, err := s.Messages.Touching(ctx, userID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.Blocks.PartnersOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Newest first so the first message seen per group is the last message.
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})

	type group struct {
		last   models.Message
		unread int
	}
	groups := make(map[string]*group)
	order := make([]string, 0)
	for _, m := range msgs {
		g, ok := groups[m.ConversationID]
		if !ok {
			g = &group{last: m}
			groups[m.ConversationID] = g
			order = append(order, m.ConversationID)
		}
		if m.Receiver == userID && !m.Read {
			g.unread++
		}
	}

	summaries := make([]ConversationSummary, 0, len(groups))
	for _, convID := range order {
		g := groups[convID]

		otherID := g.last.Sender
		if otherID == userID {
			otherID = g.last.Receiver
		}
		if _, isBlocked := blocked[otherID]; isBlocked {
			continue
		}

		other, err := s.Users.Get(ctx, otherID)
		if err != nil {
			return nil, err
		}
		if other == nil {
			continue
		}

		summaries = append(summaries, ConversationSummary{
			ConversationID: convID,
			OtherUser: ConversationPartner{
				ID:            other.ID,
				DisplayName:   other.DisplayName,
				Avatar:        other.Avatar,
				IsOnline:      other.IsOnline,
				LastSeen:      other.LastSeen,
				AllowMessages: other.ProfileVisibility.AllowMessages,
			},
			LastMessage: LastMessage{
				Content:   g.last.Content,
				CreatedAt: g.last.CreatedAt,
				Sender:    g.last.Sender,
				Read:      g.last.Read,
			},
			UnreadCount: g.unread,
		})
	}

	// Groups were built newest-first, so summaries are already ordered by
	// last-message recency.
	return summaries, nil
}

// GetThread returns one page of the conversation with the other user,
// oldest to newest: page 1 is the most recent pageSize messages. As a side
// effect the entire thread addressed to userID is marked read, regardless
// of the pagination window.
func (s *MessagingService) GetThread(ctx context.Context, userID, otherUserID primitive.ObjectID, page, pageSize int) ([]MessageView, error) {
	blocked, err := s.Blocks.ExistsBetween(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperrors.Forbidden("cannot view messages with this user")
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultThreadPageSize
	}

	convID := ConversationID(userID, otherUserID)
	msgs, err := s.Messages.ByConversation(ctx, convID, int64(page-1)*int64(pageSize), int64(pageSize))
	if err != nil {
		return nil, err
	}

	if err := s.Messages.MarkConversationRead(ctx, convID, userID); err != nil {
		return nil, err
	}

	identities := make(map[primitive.ObjectID]models.UserSummary, 2)
	for _, id := range []primitive.ObjectID{userID, otherUserID} {
		u, err := s.Users.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			identities[id] = u.Summary()
		} else {
			identities[id] = models.UserSummary{ID: id}
		}
	}

	// Reverse the newest-first page for chronological display.
	views := make([]MessageView, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		read := m.Read
		if m.Receiver == userID {
			read = true // just marked above
		}
		views = append(views, MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Sender:         identities[m.Sender],
			Receiver:       identities[m.Receiver],
			Content:        m.Content,
			Read:           read,
			CreatedAt:      m.CreatedAt,
		})
	}
	return views, nil
}

// UnreadCount returns the total number of unread messages addressed to the
// user across all conversations. Deliberately not block-aware, matching the
// badge the original platform shows.
func (s *MessagingService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.Messages.CountUnread(ctx, userID)
}

// MarkThreadRead flips every unread message addressed to userID in the
// conversation with otherUserID.
func (s *MessagingService) MarkThreadRead(ctx context.Context, userID, otherUserID primitive.ObjectID) error {
	return s.Messages.MarkConversationRead(ctx, ConversationID(userID, otherUserID), userID)
}

// DeleteMessage hard-deletes a message. Only the original sender may delete.
func (s *MessagingService) DeleteMessage(ctx context.Context, requesterID, messageID primitive.ObjectID) error {
	msg, err := s.Messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.NotFound("message not found")
	}
	if msg.Sender != requesterID {
		return apperrors.Forbidden("can only delete your own messages")
	}
	return s.Messages.Delete(ctx, messageID)
}

// Block creates a block row from requester to target. Existing message
// history is untouched; only future sends/reads/listings are gated.
func (s *MessagingService) Block(ctx context.Context, requesterID, targetID primitive.ObjectID, reason string) error {
	if requesterID == targetID {
		return apperrors.Validation("cannot block yourself")
	}

	exists, err := s.Blocks.Exists(ctx, requesterID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Conflict("user already blocked")
	}

	return s.Blocks.Insert(ctx, &models.Block{
		ID:        primitive.NewObjectID(),
		CreatedAt: time.Now().UTC(),
		Blocker:   requesterID,
		Blocked:   targetID,
		Reason:    strings.TrimSpace(reason),
	})
}

// Unblock removes the (requester, target) block row. Idempotent.
func (s *MessagingService) Unblock(ctx context.Context, requesterID, targetID primitive.ObjectID) error {
	return s.Blocks.Remove(ctx, requesterID, targetID)
}

// IsBlocked reports a block in either direction between the two users.
func (s *MessagingService) IsBlocked(ctx context.Context, a, b primitive.ObjectID) (bool, error) {
	return s.Blocks.ExistsBetween(ctx, a, b)
}

// HasBlocked reports whether requester has blocked target (one direction).
func (s *MessagingService) HasBlocked(ctx context.Context, requesterID, targetID primitive.ObjectID) (bool, error) {
	return s.Blocks.Exists(ctx, requesterID, targetID)
}

// BlockedUsers returns the users the requester has blocked, with identities
// resolved for display.
func (s *MessagingService) BlockedUsers(ctx context.Context, requesterID primitive.ObjectID) ([]BlockedUser, error) {
	blocks, err := s.Blocks.ListByBlocker(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	out := make([]BlockedUser, 0, len(blocks))
	for _, b := range blocks {
		u, err := s.Users.Get(ctx, b.Blocked)
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}
		out = append(out, BlockedUser{
			ID:          u.ID,
			DisplayName: u.DisplayName,
			Avatar:      u.Avatar,
			BlockedAt:   b.CreatedAt,
			Reason:      b.Reason,
		})
	}
	return out, nil
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) > MessagePreviewLength {
		return string(runes[:MessagePreviewLength])
	}
	return content
}
