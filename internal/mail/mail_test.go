package mail

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbox/internal/store"
)

func testConfig(endpoint string) Config {
	return Config{
		APIKey:   "secret",
		Endpoint: endpoint,
		From:     "box@example.com",
		FromName: "Remind Box",
		To:       "owner@example.com",
		ToName:   "Owner",
	}
}

func TestSendBuildsMailerSendRequest(t *testing.T) {
	var got message
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := New(testConfig(srv.URL), srv.Client(), nil)
	err := m.send(store.Reminder{
		ID: 1, Date: "2025-01-10", Hour: 7, Minute: 30,
		Content: "UONG THUOC", Status: store.StatusPending,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "box@example.com", got.From.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "owner@example.com", got.To[0].Email)
	assert.Equal(t, "NHAC NHO: UONG THUOC", got.Subject)
	assert.Contains(t, got.Text, "07:30")
	assert.Contains(t, got.Text, "2025-01-10")
}

func TestSendRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := New(testConfig(srv.URL), srv.Client(), nil)
	err := m.send(store.Reminder{ID: 1, Content: "x"})
	assert.Error(t, err)
}

func TestReminderDueSendsInBackground(t *testing.T) {
	done := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		done <- struct{}{}
	}))
	defer srv.Close()

	m := New(testConfig(srv.URL), srv.Client(), nil)
	m.ReminderDue(store.Reminder{ID: 1, Content: "x", Date: "2025-01-10"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached the server")
	}
}

func TestReminderDueDropsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	hits := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
		<-release
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := New(testConfig(srv.URL), srv.Client(), nil)
	m.ReminderDue(store.Reminder{ID: 1, Content: "first"})

	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatal("first send never started")
	}
	// Second fire while the first send is stalled gets dropped.
	m.ReminderDue(store.Reminder{ID: 2, Content: "second"})
	close(release)

	select {
	case <-hits:
		t.Fatal("second send should have been dropped")
	case <-time.After(200 * time.Millisecond):
	}
}
