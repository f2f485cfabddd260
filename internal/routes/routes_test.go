package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/client"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/config"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/database"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/services"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
)

type testServer struct {
	app  *fiber.App
	hub  *realtime.Hub
	auth *services.AuthService
}

type account struct {
	id    uuid.UUID
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  time.Minute,
		JWTRefreshExpiry: time.Hour,
		AdminToken:       "admin-token",
	}
	hub := realtime.NewHub(nil)
	authService := services.NewAuthService(db, cfg)
	moderationService := services.NewModerationService(db)
	inboxService := services.NewInboxService(db, moderationService, realtime.NewLocalBroker(hub), nil)
	profileService := services.NewProfileService(db, moderationService, inboxService, nil)

	ping := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}

	app := fiber.New()
	Setup(app, cfg, db,
		handlers.NewAuthHandler(authService),
		handlers.NewHealthHandler(ping, hub.Users),
		handlers.NewProfileHandler(profileService),
		handlers.NewInboxHandler(inboxService),
		handlers.NewModerationHandler(moderationService),
		handlers.NewAdminHandler(profileService),
		handlers.NewLiveHandler(hub),
	)
	t.Cleanup(hub.Close)
	return &testServer{app: app, hub: hub, auth: authService}
}

func (s *testServer) register(t *testing.T, email string, r role.Role) account {
	t.Helper()
	resp, err := s.auth.Register(&dto.RegisterRequest{Email: email, Password: "password123", Role: string(r)})
	require.NoError(t, err)
	return account{id: resp.User.ID, token: resp.AccessToken}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)

	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.DB)
	assert.Zero(t, health.LiveUsers)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/profile", "/api/onboarding", "/api/inbox/messages"} {
		status, _ := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
	status, _ := s.do(t, http.MethodGet, "/api/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfileStepSubmitAdvancesWizard(t *testing.T) {
	s := newTestServer(t)
	inf := s.register(t, "inf@example.com", role.Influencer)

	status, body := s.do(t, http.MethodPut, "/api/profile/personal", inf.token, map[string]string{"bio": "Travel and food"})
	require.Equal(t, http.StatusOK, status, string(body))

	var ob dto.OnboardingResponse
	require.NoError(t, json.Unmarshal(body, &ob))
	require.Len(t, ob.Steps, 5)
	assert.True(t, ob.Steps[0].Complete)
	assert.False(t, ob.Steps[1].Complete)
	assert.Equal(t, 1, ob.Cursor)
	assert.False(t, ob.Finished)

	status, body = s.do(t, http.MethodPut, "/api/profile/social", inf.token, map[string]any{
		"accounts": []map[string]any{{"provider": "instagram", "handle": "@inf", "followers": 1200}},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &ob))
	assert.Equal(t, 2, ob.Cursor)

	status, body = s.do(t, http.MethodGet, "/api/profile", inf.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"bio":"Travel and food"`)
	assert.Contains(t, string(body), `"handle":"@inf"`)

	status, _ = s.do(t, http.MethodPut, "/api/profile/personal", inf.token, map[string]string{"bio": "total shit"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPut, "/api/profile/portfolio", inf.token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMessagingThroughInbox(t *testing.T) {
	s := newTestServer(t)
	vendor := s.register(t, "brand@example.com", role.Vendor)
	inf := s.register(t, "inf@example.com", role.Influencer)
	other := s.register(t, "brand2@example.com", role.Vendor)

	status, body := s.do(t, http.MethodPost, "/api/conversations", vendor.token, dto.SendMessageRequest{
		RecipientID: inf.id, Body: "Would you like to collaborate?",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var sent dto.SendMessageResponse
	require.NoError(t, json.Unmarshal(body, &sent))

	status, body = s.do(t, http.MethodGet, "/api/inbox/messages", inf.token, nil)
	require.Equal(t, http.StatusOK, status)
	var list dto.UnreadListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, unread.ID(sent.ConversationID.String()), list.Items[0].ID)
	assert.Equal(t, "Would you like to collaborate?", list.Items[0].Snippet)

	status, _ = s.do(t, http.MethodPost, "/api/conversations/"+sent.ConversationID.String()+"/read", other.token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/conversations/"+sent.ConversationID.String()+"/read", inf.token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	_, body = s.do(t, http.MethodGet, "/api/inbox/messages", inf.token, nil)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Zero(t, list.Count)

	status, _ = s.do(t, http.MethodPost, "/api/conversations", vendor.token, dto.SendMessageRequest{
		RecipientID: inf.id, Body: "call me at 555-123-4567",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPost, "/api/conversations", vendor.token, dto.SendMessageRequest{
		RecipientID: other.id, Body: "hello",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/blocks", inf.token, dto.BlockUserRequest{BlockedID: vendor.id})
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/conversations", vendor.token, dto.SendMessageRequest{
		RecipientID: inf.id, Body: "hello again",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/inbox/archive", inf.token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminReviewNotifiesOwner(t *testing.T) {
	s := newTestServer(t)
	inf := s.register(t, "inf@example.com", role.Influencer)
	path := "/api/admin/profiles/" + inf.id.String() + "/status"

	status, _ := s.do(t, http.MethodPut, path, inf.token, dto.ProfileStatusRequest{Status: "approved"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPut, path, inf.token, dto.ProfileStatusRequest{Status: "banned"}, "X-Admin-Token", "admin-token")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := s.do(t, http.MethodPut, path, inf.token, dto.ProfileStatusRequest{Status: "approved"}, "X-Admin-Token", "admin-token")
	require.Equal(t, http.StatusOK, status, string(body))

	_, body = s.do(t, http.MethodGet, "/api/onboarding", inf.token, nil)
	var ob dto.OnboardingResponse
	require.NoError(t, json.Unmarshal(body, &ob))
	assert.Equal(t, "approved", ob.Status)

	_, body = s.do(t, http.MethodGet, "/api/inbox/notifications", inf.token, nil)
	var list dto.UnreadListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Your profile was approved", list.Items[0].Snippet)

	status, _ = s.do(t, http.MethodPost, "/api/notifications/"+string(list.Items[0].ID)+"/read", inf.token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	_, body = s.do(t, http.MethodGet, "/api/inbox/notifications", inf.token, nil)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Zero(t, list.Count)
}

func TestLiveChannelPushesNewMessages(t *testing.T) {
	s := newTestServer(t)
	vendor := s.register(t, "brand@example.com", role.Vendor)
	inf := s.register(t, "inf@example.com", role.Influencer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.Shutdown() })
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.New(base, "").DialLive(ctx)
	require.Error(t, err)

	live, err := client.New(base, inf.token).DialLive(ctx)
	require.NoError(t, err)
	defer live.Close()
	require.Eventually(t, func() bool { return s.hub.Connections(inf.id.String()) == 1 }, 2*time.Second, 10*time.Millisecond)

	sent, err := client.New(base, vendor.token).SendMessage(ctx, dto.SendMessageRequest{RecipientID: inf.id, Body: "New campaign brief"})
	require.NoError(t, err)

	select {
	case ev := <-live.Events():
		assert.Equal(t, unread.ItemArrived, ev.Kind)
		assert.Equal(t, unread.Messages, ev.Stream)
		require.NotNil(t, ev.Item)
		assert.Equal(t, unread.ID(sent.ConversationID.String()), ev.Item.ID)
		assert.Equal(t, "New campaign brief", ev.Item.Snippet)
	case <-ctx.Done():
		t.Fatal("no live event received")
	}
}
