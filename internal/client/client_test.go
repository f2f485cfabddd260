package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
)

func newTestClient(url string) *Client {
	return New(url, "tok", WithRetry(3, time.Millisecond))
}

func TestGetRetriesTemporaryFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"onboarding","personal":{"bio":"hi"}}`))
	}))
	defer srv.Close()

	rec, err := newTestClient(srv.URL).FetchProfile(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, "hi", rec.Personal.Bio)
	assert.Equal(t, onboarding.StatusOnboarding, rec.Status)
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":true,"message":"Unauthorized: invalid or expired token"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchProfile(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Message, "invalid or expired")
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchUnread(context.Background(), unread.Messages)
	assert.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchProfileSectionMismatchIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"personal":"oops","social":[{"provider":"x","handle":"y"}]}`))
	}))
	defer srv.Close()

	rec, err := newTestClient(srv.URL).FetchProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, onboarding.Personal{}, rec.Personal)
	assert.Len(t, rec.Social, 1)
}

func TestFetchUnreadNormalizesIdentifiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inbox/notifications", r.URL.Path)
		_, _ = w.Write([]byte(`{"stream":"notifications","count":2,"items":[
			{"id":42.0,"sender_id":"7","snippet":"a","read_by_influencer":true},
			{"id":" 6F9619FF-8B86-D011-B42D-00C04FC964FF ","snippet":"b"}
		]}`))
	}))
	defer srv.Close()

	entries, err := newTestClient(srv.URL).FetchUnread(context.Background(), unread.Notifications)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "42", entries[0].ID)
	assert.True(t, entries[0].Read.Influencer)
	assert.Equal(t, unread.Notifications, entries[0].Stream)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", entries[1].ID)
}

func TestMarkReadAndDeletePaths(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Method+" "+r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx := context.Background()
	require.NoError(t, c.MarkRead(ctx, unread.Messages, "c1"))
	require.NoError(t, c.MarkRead(ctx, unread.Notifications, "n1"))
	require.NoError(t, c.Delete(ctx, unread.Messages, "c1"))
	require.NoError(t, c.SubmitStep(ctx, onboarding.StepPortfolio, onboarding.Portfolio{URL: "https://x.example"}))
	assert.Error(t, c.MarkRead(ctx, unread.Stream("bogus"), "x"))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{
		"POST /api/conversations/c1/read",
		"POST /api/notifications/n1/read",
		"DELETE /api/conversations/c1",
		"PUT /api/profile/portfolio",
	}, got)
}

func TestLiveURL(t *testing.T) {
	u, err := liveURL("https://api.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/api/live", u)

	u, err = liveURL("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/live", u)

	_, err = liveURL("ftp://x")
	assert.Error(t, err)
}

func TestDialLiveReceivesEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"item.deleted","stream":"messages","id":17}`))
		// hold the connection open until the client closes it
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	lc, err := newTestClient(srv.URL).DialLive(context.Background())
	require.NoError(t, err)

	select {
	case ev := <-lc.Events():
		assert.Equal(t, unread.ItemDeleted, ev.Kind)
		assert.Equal(t, unread.ID("17"), ev.ID)
		assert.Equal(t, unread.Event{Kind: unread.ItemDeleted, ID: "17"}, ev.Event())
	case <-time.After(2 * time.Second):
		t.Fatal("no live event")
	}

	require.NoError(t, lc.Close())
	for range lc.Events() {
	}
	assert.Error(t, lc.Err())
}

func TestDialLiveRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").DialLive(context.Background())
	assert.Error(t, err)
}
