package services

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- in-memory fakes ---

type fakeMessageStore struct {
	msgs []models.Message
}

func (s *fakeMessageStore) Insert(_ context.Context, msg *models.Message) error {
	s.msgs = append(s.msgs, *msg)
	return nil
}

func (s *fakeMessageStore) ByConversation(_ context.Context, conversationID string, skip, limit int64) ([]models.Message, error) {
	var matched []models.Message
	for _, m := range s.msgs {
		if m.ConversationID == conversationID {
			matched = append(matched, m)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if skip >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[skip:]
	if int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeMessageStore) Touching(_ context.Context, userID primitive.ObjectID) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.msgs {
		if m.Sender == userID || m.Receiver == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkConversationRead(_ context.Context, conversationID string, receiver primitive.ObjectID) error {
	for i := range s.msgs {
		if s.msgs[i].ConversationID == conversationID && s.msgs[i].Receiver == receiver {
			s.msgs[i].Read = true
		}
	}
	return nil
}

func (s *fakeMessageStore) Get(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			m := s.msgs[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (s *fakeMessageStore) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeMessageStore) CountUnread(_ context.Context, receiver primitive.ObjectID) (int64, error) {
	var n int64
	for _, m := range s.msgs {
		if m.Receiver == receiver && !m.Read {
			n++
		}
	}
	return n, nil
}

type fakeBlockStore struct {
	blocks []models.Block
}

func (s *fakeBlockStore) ExistsBetween(_ context.Context, a, b primitive.ObjectID) (bool, error) {
	for _, blk := range s.blocks {
		if (blk.Blocker == a && blk.Blocked == b) || (blk.Blocker == b && blk.Blocked == a) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeBlockStore) Exists(_ context.Context, blocker, blocked primitive.ObjectID) (bool, error) {
	for _, blk := range s.blocks {
		if blk.Blocker == blocker && blk.Blocked == blocked {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeBlockStore) Insert(_ context.Context, block *models.Block) error {
	s.blocks = append(s.blocks, *block)
	return nil
}

func (s *fakeBlockStore) Remove(_ context.Context, blocker, blocked primitive.ObjectID) error {
	for i, blk := range s.blocks {
		if blk.Blocker == blocker && blk.Blocked == blocked {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeBlockStore) PartnersOf(_ context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]struct{}, error) {
	partners := make(map[primitive.ObjectID]struct{})
	for _, blk := range s.blocks {
		if blk.Blocker == userID {
			partners[blk.Blocked] = struct{}{}
		}
		if blk.Blocked == userID {
			partners[blk.Blocker] = struct{}{}
		}
	}
	return partners, nil
}

func (s *fakeBlockStore) ListByBlocker(_ context.Context, blocker primitive.ObjectID) ([]models.Block, error) {
	var out []models.Block
	for _, blk := range s.blocks {
		if blk.Blocker == blocker {
			out = append(out, blk)
		}
	}
	return out, nil
}

type fakeUserGetter struct {
	users map[primitive.ObjectID]*models.User
}

func (s *fakeUserGetter) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users[id], nil
}

type fakeNotifier struct {
	emitted []*models.Notification
}

func (s *fakeNotifier) Emit(_ context.Context, n *models.Notification) error {
	s.emitted = append(s.emitted, n)
	return nil
}

type messagingFixture struct {
	svc    *MessagingService
	msgs   *fakeMessageStore
	blocks *fakeBlockStore
	users  *fakeUserGetter
	notify *fakeNotifier
}

func newMessagingFixture(users ...*models.User) *messagingFixture {
	f := &messagingFixture{
		msgs:   &fakeMessageStore{},
		blocks: &fakeBlockStore{},
		users:  &fakeUserGetter{users: make(map[primitive.ObjectID]*models.User)},
		notify: &fakeNotifier{},
	}
	for _, u := range users {
		f.users.users[u.ID] = u
	}
	f.svc = &MessagingService{
		Messages: f.msgs,
		Blocks:   f.blocks,
		Users:    f.users,
		Notify:   f.notify,
	}
	return f
}

func testUser(name string) *models.User {
	return &models.User{
		ID:                primitive.NewObjectID(),
		DisplayName:       name,
		ProfileVisibility: models.DefaultProfileVisibility(),
	}
}

// --- tests ---

func TestConversationIDSymmetric(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, ConversationID(a, b), ConversationID(b, a))
	assert.Contains(t, ConversationID(a, b), "_")
}

func TestSendEmptyContentRejected(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.Send(context.Background(), alice.ID, bob.ID, content)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "content %q", content)
	}
	assert.Empty(t, f.msgs.msgs, "no message should be persisted")
}

func TestSendToSelfRejected(t *testing.T) {
	alice := testUser("Alice")
	f := newMessagingFixture(alice)

	_, err := f.svc.Send(context.Background(), alice.ID, alice.ID, "hi me")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestSendUnknownReceiver(t *testing.T) {
	alice := testUser("Alice")
	f := newMessagingFixture(alice)

	_, err := f.svc.Send(context.Background(), alice.ID, primitive.NewObjectID(), "hello?")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestSendBlockedEitherDirection(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	require.NoError(t, f.svc.Block(ctx, alice.ID, bob.ID, ""))

	_, err := f.svc.Send(ctx, alice.ID, bob.ID, "hi")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	_, err = f.svc.Send(ctx, bob.ID, alice.ID, "hi")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	require.NoError(t, f.svc.Unblock(ctx, alice.ID, bob.ID))

	_, err = f.svc.Send(ctx, alice.ID, bob.ID, "hi again")
	assert.NoError(t, err)
	_, err = f.svc.Send(ctx, bob.ID, alice.ID, "hi back")
	assert.NoError(t, err)
}

func TestSendReceiverDisabledMessages(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	bob.ProfileVisibility.AllowMessages = false
	f := newMessagingFixture(alice, bob)

	_, err := f.svc.Send(context.Background(), alice.ID, bob.ID, "hello")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestSendNotifiesReceiverWithPreview(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)

	long := strings.Repeat("a", 80)
	view, err := f.svc.Send(context.Background(), alice.ID, bob.ID, long)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, view.Sender.ID)
	assert.Equal(t, bob.ID, view.Receiver.ID)
	assert.False(t, view.Read)

	require.Len(t, f.notify.emitted, 1)
	n := f.notify.emitted[0]
	assert.Equal(t, bob.ID, n.User)
	assert.Equal(t, models.ActionNewMessage, n.Meta.ActionType)
	assert.Equal(t, "Alice", n.Meta.SenderName)
	assert.Len(t, []rune(n.Meta.MessagePreview), MessagePreviewLength)
}

func TestListConversations(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	carol := testUser("Carol")
	dave := testUser("Dave")
	f := newMessagingFixture(alice, bob, carol, dave)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	seed := func(from, to *models.User, content string, offset time.Duration, read bool) {
		f.msgs.msgs = append(f.msgs.msgs, models.Message{
			ID:             primitive.NewObjectID(),
			CreatedAt:      base.Add(offset),
			Sender:         from.ID,
			Receiver:       to.ID,
			Content:        content,
			Read:           read,
			ConversationID: ConversationID(from.ID, to.ID),
		})
	}

	// Bob thread: two unread for Alice, last message from Bob.
	seed(alice, bob, "hey bob", 1*time.Minute, true)
	seed(bob, alice, "hey alice", 2*time.Minute, false)
	seed(bob, alice, "you there?", 3*time.Minute, false)
	// Carol thread: older, read.
	seed(carol, alice, "hi", 0, true)
	// Dave thread exists but Dave is blocked.
	seed(dave, alice, "yo", 4*time.Minute, false)
	require.NoError(t, f.svc.Block(ctx, alice.ID, dave.ID, "spam"))

	summaries, err := f.svc.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2, "blocked conversation must vanish")

	assert.Equal(t, bob.ID, summaries[0].OtherUser.ID)
	assert.Equal(t, "you there?", summaries[0].LastMessage.Content)
	assert.Equal(t, 2, summaries[0].UnreadCount)

	assert.Equal(t, carol.ID, summaries[1].OtherUser.ID)
	assert.Equal(t, 0, summaries[1].UnreadCount)
}

func TestGetThreadMarksWholeThreadRead(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		f.msgs.msgs = append(f.msgs.msgs, models.Message{
			ID:             primitive.NewObjectID(),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			Sender:         bob.ID,
			Receiver:       alice.ID,
			Content:        "msg",
			ConversationID: ConversationID(alice.ID, bob.ID),
		})
	}

	// Page 1 of size 2 covers only the two newest messages.
	views, err := f.svc.GetThread(ctx, alice.ID, bob.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// Chronological within the page.
	assert.True(t, views[0].CreatedAt.Before(views[1].CreatedAt))
	for _, v := range views {
		assert.True(t, v.Read)
	}

	// Every message in the thread is read, including outside the page.
	count, err := f.svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetThreadBlocked(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	require.NoError(t, f.svc.Block(ctx, bob.ID, alice.ID, ""))

	_, err := f.svc.GetThread(ctx, alice.ID, bob.ID, 1, 10)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestUnreadCountIgnoresBlocks(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	f.msgs.msgs = append(f.msgs.msgs, models.Message{
		ID:             primitive.NewObjectID(),
		CreatedAt:      time.Now().UTC(),
		Sender:         bob.ID,
		Receiver:       alice.ID,
		Content:        "before block",
		ConversationID: ConversationID(alice.ID, bob.ID),
	})
	require.NoError(t, f.svc.Block(ctx, alice.ID, bob.ID, ""))

	// The badge count stays, even though the conversation is hidden.
	count, err := f.svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	summaries, err := f.svc.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestDeleteMessage(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	view, err := f.svc.Send(ctx, alice.ID, bob.ID, "delete me")
	require.NoError(t, err)

	err = f.svc.DeleteMessage(ctx, bob.ID, view.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden), "receiver cannot delete")

	require.NoError(t, f.svc.DeleteMessage(ctx, alice.ID, view.ID))

	views, err := f.svc.GetThread(ctx, alice.ID, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, views)

	err = f.svc.DeleteMessage(ctx, alice.ID, view.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestBlockValidation(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	err := f.svc.Block(ctx, alice.ID, alice.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	require.NoError(t, f.svc.Block(ctx, alice.ID, bob.ID, "  too noisy  "))
	assert.Equal(t, "too noisy", f.blocks.blocks[0].Reason)

	err = f.svc.Block(ctx, alice.ID, bob.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	// The reverse pair is distinct and allowed.
	require.NoError(t, f.svc.Block(ctx, bob.ID, alice.ID, ""))
}

func TestUnblockIdempotent(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	assert.NoError(t, f.svc.Unblock(ctx, alice.ID, bob.ID))

	require.NoError(t, f.svc.Block(ctx, alice.ID, bob.ID, ""))
	assert.NoError(t, f.svc.Unblock(ctx, alice.ID, bob.ID))
	assert.NoError(t, f.svc.Unblock(ctx, alice.ID, bob.ID))
	assert.Empty(t, f.blocks.blocks)
}

func TestBlockedUsersList(t *testing.T) {
	alice := testUser("Alice")
	bob := testUser("Bob")
	f := newMessagingFixture(alice, bob)
	ctx := context.Background()

	require.NoError(t, f.svc.Block(ctx, alice.ID, bob.ID, "boundaries"))

	list, err := f.svc.BlockedUsers(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].ID)
	assert.Equal(t, "Bob", list[0].DisplayName)
	assert.Equal(t, "boundaries", list[0].Reason)
}
