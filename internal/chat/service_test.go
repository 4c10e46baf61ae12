package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"institution-chat/internal/auth"
	"institution-chat/internal/chat"
	"institution-chat/internal/chat/memstore"
	"institution-chat/internal/model"
	"institution-chat/internal/pagination"
)

type notification struct {
	recipient int64
	reply     model.ReplyView
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(recipientID int64, reply model.ReplyView) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{recipientID, reply})
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	svc      *chat.Service
	alice    auth.Identity
	bob      auth.Identity
	carol    auth.Identity
}

// tickingClock advances one second per reading so ordering never depends
// on the wall clock.
func tickingClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func identity(u model.User) auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email, InstitutionID: u.InstitutionID}
}

func newFixture(t *testing.T, opts chat.Options) *fixture {
	t.Helper()
	store := memstore.New()
	store.SetClock(tickingClock())
	users := []model.User{
		{ID: 1, Email: "alice@x", Firstname: "Alice", Surname: "Nowak", InstitutionID: 1},
		{ID: 2, Email: "bob@x", Firstname: "Bob", Surname: "Kowalski", InstitutionID: 1},
		{ID: 3, Email: "carol@y", Firstname: "Carol", Surname: "Wisniewska", InstitutionID: 2},
	}
	for _, u := range users {
		store.AddUser(u)
	}
	n := &recordingNotifier{}
	svc := chat.NewService(chat.Deps{
		Conversations: store,
		Replies:       store,
		Users:         store,
		Notifier:      n,
	}, opts)
	return &fixture{
		store: store, notifier: n, svc: svc,
		alice: identity(users[0]), bob: identity(users[1]), carol: identity(users[2]),
	}
}

func TestCreateConversationIsIdempotentAcrossDirections(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c1, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	assert.True(t, c1.Created)

	again, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, c1.ID, again.ID)

	reverse, err := f.svc.CreateConversation(ctx, f.bob, 1)
	require.NoError(t, err)
	assert.False(t, reverse.Created)
	assert.Equal(t, c1.ID, reverse.ID)
}

func TestCreateConversationConcurrentlyYieldsOne(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller, other := f.alice, int64(2)
			if i%2 == 1 {
				caller, other = f.bob, 1
			}
			v, err := f.svc.CreateConversation(ctx, caller, other)
			assert.NoError(t, err)
			ids[i] = v.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, err := f.store.CountConversationsForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateConversationErrors(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	_, err := f.svc.CreateConversation(ctx, f.alice, 1)
	assert.ErrorIs(t, err, chat.ErrSelfConversation)

	_, err = f.svc.CreateConversation(ctx, f.alice, 99)
	assert.ErrorIs(t, err, chat.ErrNotFound)

	_, err = f.svc.CreateConversation(ctx, f.alice, 0)
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
}

func TestCreateConversationInstitutionPolicy(t *testing.T) {
	ctx := context.Background()

	open := newFixture(t, chat.Options{})
	_, err := open.svc.CreateConversation(ctx, open.alice, 3)
	require.NoError(t, err, "cross-institution conversations are allowed by default")

	scoped := newFixture(t, chat.Options{SameInstitutionOnly: true})
	_, err = scoped.svc.CreateConversation(ctx, scoped.alice, 3)
	assert.ErrorIs(t, err, chat.ErrForbidden)
	_, err = scoped.svc.CreateConversation(ctx, scoped.alice, 2)
	assert.NoError(t, err)
}

func TestScenarioReplyNotifiesCounterpartyAndShowsInInbox(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c1, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	again, err := f.svc.CreateConversation(ctx, f.bob, 1)
	require.NoError(t, err)
	require.Equal(t, c1.ID, again.ID)

	r1, err := f.svc.PostReply(ctx, f.alice, c1.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", r1.Body)
	assert.Equal(t, int64(1), r1.Sender.ID)
	assert.Equal(t, "Alice", r1.Sender.Firstname)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(2), f.notifier.sent[0].recipient)
	assert.Equal(t, r1.ID, f.notifier.sent[0].reply.ID)

	inbox, err := f.svc.ListInbox(ctx, f.bob, nil, nil)
	require.NoError(t, err)
	require.Len(t, inbox.Data, 1)
	entry := inbox.Data[0]
	assert.Equal(t, c1.ID, entry.ConversationID)
	assert.Equal(t, int64(1), entry.OtherUser.ID)
	require.NotNil(t, entry.LastReply)
	assert.Equal(t, r1.ID, entry.LastReply.ID)
}

func TestReplyFromBobNotifiesAlice(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	_, err = f.svc.PostReply(ctx, f.bob, c.ID, "hello back")
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(1), f.notifier.sent[0].recipient)
}

func TestInboxOrientsOtherParticipantForBothSides(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	_, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	_, err = f.svc.CreateConversation(ctx, f.carol, 1)
	require.NoError(t, err)

	aliceInbox, err := f.svc.ListInbox(ctx, f.alice, nil, nil)
	require.NoError(t, err)
	require.Len(t, aliceInbox.Data, 2)
	for _, e := range aliceInbox.Data {
		assert.NotEqual(t, f.alice.ID, e.OtherUser.ID)
		assert.Nil(t, e.LastReply, "no replies yet")
	}

	bobInbox, err := f.svc.ListInbox(ctx, f.bob, nil, nil)
	require.NoError(t, err)
	require.Len(t, bobInbox.Data, 1)
	assert.Equal(t, f.alice.ID, bobInbox.Data[0].OtherUser.ID)

	carolInbox, err := f.svc.ListInbox(ctx, f.carol, nil, nil)
	require.NoError(t, err)
	require.Len(t, carolInbox.Data, 1)
	assert.Equal(t, f.alice.ID, carolInbox.Data[0].OtherUser.ID)
}

func TestInboxLastReplyTracksNewest(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)

	var last model.ReplyView
	for i := 0; i < 5; i++ {
		sender := f.alice
		if i%2 == 1 {
			sender = f.bob
		}
		last, err = f.svc.PostReply(ctx, sender, c.ID, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	inbox, err := f.svc.ListInbox(ctx, f.alice, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, inbox.Data[0].LastReply)
	assert.Equal(t, last.ID, inbox.Data[0].LastReply.ID)
	assert.Equal(t, "msg 4", inbox.Data[0].LastReply.Body)
}

func TestInboxOrderedByRecentActivity(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	withBob, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	withCarol, err := f.svc.CreateConversation(ctx, f.alice, 3)
	require.NoError(t, err)

	_, err = f.svc.PostReply(ctx, f.alice, withBob.ID, "bump")
	require.NoError(t, err)

	inbox, err := f.svc.ListInbox(ctx, f.alice, nil, nil)
	require.NoError(t, err)
	require.Len(t, inbox.Data, 2)
	assert.Equal(t, withBob.ID, inbox.Data[0].ConversationID)
	assert.Equal(t, withCarol.ID, inbox.Data[1].ConversationID)
}

func TestPostReplyByNonParticipantIsForbidden(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)

	_, err = f.svc.PostReply(ctx, f.carol, c.ID, "let me in")
	assert.ErrorIs(t, err, chat.ErrForbidden)

	n, err := f.store.CountReplies(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.notifier.sent)
}

func TestPostReplyValidation(t *testing.T) {
	f := newFixture(t, chat.Options{MaxBodyLength: 10})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	before, err := f.store.GetConversation(ctx, c.ID)
	require.NoError(t, err)

	for _, body := range []string{"", "   \n", "this body is far too long"} {
		_, err := f.svc.PostReply(ctx, f.alice, c.ID, body)
		assert.ErrorIs(t, err, chat.ErrInvalidInput, body)
	}

	after, err := f.store.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	_, err = f.svc.PostReply(ctx, f.alice, c.ID, "żółć ąę")
	assert.NoError(t, err, "limit counts characters, not bytes")

	_, err = f.svc.PostReply(ctx, f.alice, 999, "hi")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestPostReplyStoreFailureDoesNotNotify(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)

	f.store.FailAppend = errors.New("disk full")
	_, err = f.svc.PostReply(ctx, f.alice, c.ID, "hi")
	require.Error(t, err)
	assert.Empty(t, f.notifier.sent)
}

func TestPostReplyBumpsUpdatedAt(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	before, err := f.store.GetConversation(ctx, c.ID)
	require.NoError(t, err)

	r, err := f.svc.PostReply(ctx, f.alice, c.ID, "hi")
	require.NoError(t, err)

	after, err := f.store.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.UpdatedAt.Equal(r.SentAt))
}

func TestListRepliesPagination(t *testing.T) {
	f := newFixture(t, chat.Options{Limits: pagination.Limits{Default: 15, Min: 1, Max: 30}})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	var posted []model.ReplyView
	for i := 0; i < 7; i++ {
		r, err := f.svc.PostReply(ctx, f.alice, c.ID, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		posted = append(posted, r)
	}

	one, three, perPage := 1, 3, 3
	page1, err := f.svc.ListReplies(ctx, f.bob, c.ID, &one, &perPage)
	require.NoError(t, err)
	assert.Equal(t, 7, page1.Total)
	assert.Equal(t, 3, page1.LastPage)
	require.Len(t, page1.Data, 3)
	assert.Equal(t, []int64{posted[6].ID, posted[5].ID, posted[4].ID},
		[]int64{page1.Data[0].ID, page1.Data[1].ID, page1.Data[2].ID})

	page3, err := f.svc.ListReplies(ctx, f.bob, c.ID, &three, &perPage)
	require.NoError(t, err)
	require.Len(t, page3.Data, 1)
	assert.Equal(t, posted[0].ID, page3.Data[0].ID)

	ten := 10
	page10, err := f.svc.ListReplies(ctx, f.bob, c.ID, &ten, &perPage)
	require.NoError(t, err)
	assert.Equal(t, page3.Data, page10.Data)
	assert.Equal(t, 3, page10.CurrentPage)
}

func TestListRepliesDefaultLimitsClampPerPage(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := f.svc.PostReply(ctx, f.alice, c.ID, "x")
		require.NoError(t, err)
	}

	perPage := 3
	env, err := f.svc.ListReplies(ctx, f.alice, c.ID, nil, &perPage)
	require.NoError(t, err)
	assert.Equal(t, 5, env.PerPage)
	assert.Equal(t, 2, env.LastPage)
	assert.Len(t, env.Data, 5)
}

func TestListRepliesAccess(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()

	c, err := f.svc.CreateConversation(ctx, f.alice, 2)
	require.NoError(t, err)

	_, err = f.svc.ListReplies(ctx, f.carol, c.ID, nil, nil)
	assert.ErrorIs(t, err, chat.ErrForbidden)

	_, err = f.svc.ListReplies(ctx, f.alice, 404, nil, nil)
	assert.ErrorIs(t, err, chat.ErrNotFound)

	env, err := f.svc.ListReplies(ctx, f.alice, c.ID, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, env.Total)
	assert.Zero(t, env.LastPage)
	assert.NotNil(t, env.Data)
}

func TestReadsHonorDeadline(t *testing.T) {
	f := newFixture(t, chat.Options{})
	c, err := f.svc.CreateConversation(context.Background(), f.alice, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err = f.svc.ListInbox(ctx, f.alice, nil, nil)
	assert.ErrorIs(t, err, chat.ErrTimeout)

	_, err = f.svc.ListReplies(ctx, f.alice, c.ID, nil, nil)
	assert.ErrorIs(t, err, chat.ErrTimeout)
}

func TestSearchUsersScopedToInstitution(t *testing.T) {
	f := newFixture(t, chat.Options{})
	ctx := context.Background()
	f.store.AddUser(model.User{ID: 4, Email: "bo@x", Firstname: "Bogdan", Surname: "Zielinski", InstitutionID: 1})
	f.store.AddUser(model.User{ID: 5, Email: "bo@y", Firstname: "Bob", Surname: "Other", InstitutionID: 2})

	found, err := f.svc.SearchUsers(ctx, f.alice, "bo")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(2), found[0].ID)
	assert.Equal(t, int64(4), found[1].ID)

	found, err = f.svc.SearchUsers(ctx, f.alice, "bob kow")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = f.svc.SearchUsers(ctx, f.alice, "nobody")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = f.svc.SearchUsers(ctx, f.alice, "  ")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
}
