package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/config"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/database"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/models"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
)

type published struct {
	userID string
	event  dto.LiveEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, userID string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userID: userID, event: event.(dto.LiveEvent)})
	return nil
}

func (p *recordingPublisher) For(userID uuid.UUID) []dto.LiveEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []dto.LiveEvent
	for _, e := range p.events {
		if e.userID == userID.String() {
			out = append(out, e.event)
		}
	}
	return out
}

type fixture struct {
	db         *gorm.DB
	pub        *recordingPublisher
	auth       *AuthService
	moderation *ModerationService
	inbox      *InboxService
	profile    *ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Minute, JWTRefreshExpiry: time.Hour}
	f := &fixture{db: db, pub: &recordingPublisher{}}
	f.auth = NewAuthService(db, cfg)
	f.moderation = NewModerationService(db)
	f.inbox = NewInboxService(db, f.moderation, f.pub, nil)
	f.profile = NewProfileService(db, f.moderation, f.inbox, nil)
	return f
}

func (f *fixture) register(t *testing.T, email string, r role.Role) uuid.UUID {
	t.Helper()
	resp, err := f.auth.Register(&dto.RegisterRequest{Email: email, Password: "password123", Role: string(r)})
	require.NoError(t, err)
	return resp.User.ID
}

func TestRegisterLoginRefresh(t *testing.T) {
	f := newFixture(t)
	resp, err := f.auth.Register(&dto.RegisterRequest{Email: " Inf@Example.com ", Password: "password123", Role: "Influencer"})
	require.NoError(t, err)
	assert.Equal(t, "inf@example.com", resp.User.Email)
	assert.Equal(t, "influencer", resp.User.Role)
	assert.Equal(t, "onboarding", resp.User.Status)

	_, err = f.auth.Register(&dto.RegisterRequest{Email: "inf@example.com", Password: "password123", Role: "vendor"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.auth.Register(&dto.RegisterRequest{Email: "a@example.com", Password: "password123", Role: "admin"})
	assert.Error(t, err)

	_, err = f.auth.Login(&dto.LoginRequest{Email: "inf@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	refreshed, err := f.auth.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	_, err = f.auth.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDeleteAccountAllowsReRegistration(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "gone@example.com", role.Vendor)

	assert.ErrorIs(t, f.auth.DeleteAccount(id, ""), ErrPasswordRequired)
	assert.ErrorIs(t, f.auth.DeleteAccount(id, "nope-nope"), ErrInvalidCredentials)
	require.NoError(t, f.auth.DeleteAccount(id, "password123"))

	f.register(t, "gone@example.com", role.Vendor)
}

func TestProfileSectionsRoundTripIntoRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "inf@example.com", role.Influencer)

	require.NoError(t, f.profile.SavePersonal(ctx, id, onboarding.Personal{Bio: "  food and travel "}))
	require.NoError(t, f.profile.SaveSocial(ctx, id, []onboarding.SocialAccount{
		{Provider: "Instagram", Handle: "@me", Followers: 1200},
		{Provider: "", Handle: "dropped"},
	}))

	rec, user, err := f.profile.Record(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "influencer", user.Role)
	assert.Equal(t, "food and travel", rec.Personal.Bio)
	require.Len(t, rec.Social, 1)
	assert.Equal(t, "instagram", rec.Social[0].Provider)

	status, err := f.profile.Onboarding(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Cursor)
	assert.Equal(t, "categories", status.Steps[status.Cursor].ID)
	assert.False(t, status.Finished)
}

func TestProfileRejectsProfanity(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "inf@example.com", role.Influencer)
	err := f.profile.SavePersonal(context.Background(), id, onboarding.Personal{Bio: "total bullshit"})
	assert.ErrorIs(t, err, ErrProfileRejected)
}

func TestProfileSubmittedForReviewWithoutPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "agency@example.com", role.Agency)

	require.NoError(t, f.profile.SavePersonal(ctx, id, onboarding.Personal{DisplayName: "Acme Talent"}))
	require.NoError(t, f.profile.SavePortfolio(ctx, id, onboarding.Portfolio{URL: "https://acme.example"}))
	require.NoError(t, f.profile.SaveSocial(ctx, id, []onboarding.SocialAccount{{Provider: "tiktok", Handle: "acme"}}))
	require.NoError(t, f.profile.SaveCategories(ctx, id, []onboarding.Category{{Parent: "lifestyle", Slug: "Fitness"}}))

	status, err := f.profile.Onboarding(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "approval_pending", status.Status)
	assert.True(t, status.Finished)
	for _, st := range status.Steps {
		assert.True(t, st.Complete, st.ID)
	}

	items, err := f.inbox.Unread(ctx, id, unread.Notifications)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Snippet, "submitted for review")

	events := f.pub.For(id)
	require.Len(t, events, 1)
	assert.Equal(t, unread.ItemArrived, events[0].Kind)
	assert.Equal(t, unread.Notifications, events[0].Stream)
}

func TestSetStatusNotifiesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "v@example.com", role.Vendor)

	assert.ErrorIs(t, f.profile.SetStatus(ctx, nil, id, &dto.ProfileStatusRequest{Status: "maybe"}), ErrInvalidStatus)
	assert.ErrorIs(t, f.profile.SetStatus(ctx, nil, uuid.New(), &dto.ProfileStatusRequest{Status: "approved"}), ErrUserNotFound)
	require.NoError(t, f.profile.SetStatus(ctx, nil, id, &dto.ProfileStatusRequest{Status: "Approved", Note: "welcome"}))

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", id).Error)
	assert.Equal(t, "approved", user.Status)

	items, err := f.inbox.Unread(ctx, id, unread.Notifications)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Your profile was approved: welcome", items[0].Snippet)
}

func TestSendMessageCreatesUnreadForRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.register(t, "v@example.com", role.Vendor)
	creator := f.register(t, "c@example.com", role.Agency)

	resp, err := f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "Interested in a campaign?"})
	require.NoError(t, err)

	items, err := f.inbox.Unread(ctx, creator, unread.Messages)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, unread.ID(resp.ConversationID.String()), items[0].ID)
	assert.Equal(t, "v", items[0].SenderName)
	assert.True(t, items[0].Vendor)
	assert.False(t, items[0].Agency)

	mine, err := f.inbox.Unread(ctx, vendor, unread.Messages)
	require.NoError(t, err)
	assert.Empty(t, mine)

	events := f.pub.For(creator)
	require.Len(t, events, 1)
	assert.Equal(t, unread.ItemArrived, events[0].Kind)
	assert.Empty(t, f.pub.For(vendor))

	// a reply flips the unread side onto the vendor, same conversation
	reply, err := f.inbox.SendMessage(ctx, creator, &dto.SendMessageRequest{RecipientID: vendor, Body: "Sure"})
	require.NoError(t, err)
	assert.Equal(t, resp.ConversationID, reply.ConversationID)
	items, err = f.inbox.Unread(ctx, creator, unread.Messages)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSendMessageRefusals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.register(t, "v@example.com", role.Vendor)
	other := f.register(t, "v2@example.com", role.Vendor)
	creator := f.register(t, "c@example.com", role.Influencer)

	_, err := f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: other, Body: "hi"})
	assert.ErrorIs(t, err, ErrInvalidPair)

	_, err = f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "details at https://example.com/offer"})
	var rejected *ContentRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "url_not_allowed", rejected.Reason)

	require.NoError(t, f.moderation.BlockUser(ctx, creator, vendor))
	_, err = f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "hello"})
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestMarkReadAndDeleteConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.register(t, "v@example.com", role.Vendor)
	creator := f.register(t, "c@example.com", role.Influencer)
	stranger := f.register(t, "s@example.com", role.Influencer)

	resp, err := f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "hello"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.inbox.MarkConversationRead(ctx, stranger, resp.ConversationID), ErrNotParticipant)
	assert.ErrorIs(t, f.inbox.MarkConversationRead(ctx, creator, uuid.New()), ErrConversationNotFound)

	require.NoError(t, f.inbox.MarkConversationRead(ctx, creator, resp.ConversationID))
	items, err := f.inbox.Unread(ctx, creator, unread.Messages)
	require.NoError(t, err)
	assert.Empty(t, items)

	events := f.pub.For(creator)
	require.Len(t, events, 2)
	assert.Equal(t, unread.ItemRead, events[1].Kind)
	require.NotNil(t, events[1].Read)
	assert.True(t, events[1].Read.ReadBy(role.Influencer))

	require.NoError(t, f.inbox.DeleteConversation(ctx, vendor, resp.ConversationID))
	assert.Equal(t, unread.ItemDeleted, f.pub.For(vendor)[0].Kind)
	assert.Equal(t, unread.ItemDeleted, f.pub.For(creator)[2].Kind)

	// a new message starts a new conversation; the deleted one stays gone
	again, err := f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "still there?"})
	require.NoError(t, err)
	assert.NotEqual(t, resp.ConversationID, again.ConversationID)
	items, err = f.inbox.Unread(ctx, creator, unread.Messages)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, unread.ID(again.ConversationID.String()), items[0].ID)
	assert.ErrorIs(t, f.inbox.MarkConversationRead(ctx, creator, resp.ConversationID), ErrConversationNotFound)
}

// inboxSource serves a user's unread snapshots straight from the service.
type inboxSource struct {
	inbox  *InboxService
	userID uuid.UUID
}

func (s inboxSource) FetchUnread(ctx context.Context, stream unread.Stream) ([]unread.Entry, error) {
	items, err := s.inbox.Unread(ctx, s.userID, stream)
	if err != nil {
		return nil, err
	}
	entries := make([]unread.Entry, len(items))
	for i, item := range items {
		entries[i] = item.Entry(stream)
	}
	return entries, nil
}

func TestMessageAfterDeleteReachesRecipientBadge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.register(t, "v@example.com", role.Vendor)
	creator := f.register(t, "c@example.com", role.Influencer)

	first, err := f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "hello"})
	require.NoError(t, err)
	require.NoError(t, f.inbox.DeleteConversation(ctx, vendor, first.ConversationID))
	_, err = f.inbox.SendMessage(ctx, vendor, &dto.SendMessageRequest{RecipientID: creator, Body: "hello again"})
	require.NoError(t, err)

	rec := unread.NewReconciler(unread.Messages, unread.Viewer{ID: creator.String(), Role: role.Influencer}, nil)
	for _, ev := range f.pub.For(creator) {
		rec.Apply(ev.Event())
	}
	assert.Equal(t, 1, rec.Count())
	assert.True(t, rec.Tombstoned(first.ConversationID.String()))

	require.NoError(t, rec.LoadSnapshot(ctx, inboxSource{inbox: f.inbox, userID: creator}))
	assert.Equal(t, 1, rec.Count())
}

func TestNotificationReadAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "c@example.com", role.Influencer)
	other := f.register(t, "o@example.com", role.Influencer)

	require.NoError(t, f.inbox.Notify(ctx, id, nil, "welcome", "Welcome aboard"))
	require.NoError(t, f.inbox.Notify(ctx, id, nil, "tip", "Complete your profile"))
	items, err := f.inbox.Unread(ctx, id, unread.Notifications)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first, err := uuid.Parse(string(items[0].ID))
	require.NoError(t, err)
	second, err := uuid.Parse(string(items[1].ID))
	require.NoError(t, err)

	assert.ErrorIs(t, f.inbox.MarkNotificationRead(ctx, other, role.Influencer, first), ErrNotificationNotFound)
	require.NoError(t, f.inbox.MarkNotificationRead(ctx, id, role.Influencer, first))
	require.NoError(t, f.inbox.DeleteNotification(ctx, id, second))

	items, err = f.inbox.Unread(ctx, id, unread.Notifications)
	require.NoError(t, err)
	assert.Empty(t, items)

	events := f.pub.For(id)
	require.Len(t, events, 4)
	assert.Equal(t, unread.ItemRead, events[2].Kind)
	assert.Equal(t, unread.ItemDeleted, events[3].Kind)
}

func TestReportsAndBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@example.com", role.Vendor)
	b := f.register(t, "b@example.com", role.Influencer)

	_, err := f.moderation.CreateReport(ctx, a, &dto.CreateReportRequest{ContentType: "post", ContentID: "x", Reason: "spam"})
	assert.ErrorIs(t, err, ErrInvalidReport)
	_, err = f.moderation.CreateReport(ctx, a, &dto.CreateReportRequest{ContentType: "user", ContentID: a.String(), Reason: "spam"})
	assert.ErrorIs(t, err, ErrSelfReport)
	report, err := f.moderation.CreateReport(ctx, a, &dto.CreateReportRequest{ContentType: "user", ContentID: b.String(), Reason: "spam"})
	require.NoError(t, err)

	reports, total, err := f.moderation.ListReports(ctx, "pending", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, reports, 1)

	require.NoError(t, f.moderation.ActionReport(ctx, report.ID, &dto.ActionReportRequest{Status: "dismissed"}))
	assert.ErrorIs(t, f.moderation.ActionReport(ctx, uuid.New(), &dto.ActionReportRequest{Status: "dismissed"}), ErrReportNotFound)

	assert.ErrorIs(t, f.moderation.BlockUser(ctx, a, a), ErrSelfBlock)
	require.NoError(t, f.moderation.BlockUser(ctx, a, b))
	assert.ErrorIs(t, f.moderation.BlockUser(ctx, a, b), ErrAlreadyBlocked)

	blocked, err := f.moderation.Blocked(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, f.moderation.UnblockUser(ctx, a, b))
	blocked, err = f.moderation.Blocked(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestScreenMessage(t *testing.T) {
	m := NewModerationService(nil)
	cases := []struct {
		body   string
		reason string
	}{
		{"Looking forward to working together", ""},
		{"this offer is shit", ReasonLanguage},
		{"see www.brand-site.com for details", ReasonURL},
		{"mail me at jo@brand.io", ReasonContactInfo},
		{"call 555.123.4567", ReasonContactInfo},
		{"soooo excited!!", ReasonSpam},
		{"really?!?!", ""},
		{"HUGE SUMMER DEALS TODAY", ReasonCaps},
		{"NASA and ESA", ""},
	}
	for _, tc := range cases {
		err := m.ScreenMessage(tc.body)
		if tc.reason == "" {
			assert.NoError(t, err, tc.body)
			continue
		}
		var rejected *ContentRejectedError
		require.ErrorAs(t, err, &rejected, tc.body)
		assert.Equal(t, tc.reason, rejected.Reason, tc.body)
		assert.Equal(t, RejectionMessage(tc.reason), rejected.Message)
	}
	assert.True(t, m.ContainsProfanity("What a SCAM"))
	assert.False(t, m.ContainsProfanity("Scampi recipes"))
}
