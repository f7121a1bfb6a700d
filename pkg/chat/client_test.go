package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "relay-key",
		Timeout: 2 * time.Second,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestCreateConversationSendsSeedAndAuth(t *testing.T) {
	var received ConversationSeed
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/conversations", r.URL.Path)
		require.Equal(t, "Bearer relay-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ConversationRef{ConversationID: "conv-1", URL: "/chat/conv-1"})
	})

	ref, err := client.CreateConversation(context.Background(), ConversationSeed{
		UserID:        "user-1",
		RoadmapID:     "r-1",
		MilestoneID:   "m1",
		Title:         "Variables",
		InitialPrompt: "teach variables",
	})
	require.NoError(t, err)
	require.Equal(t, "conv-1", ref.ConversationID)
	require.Equal(t, "m1", received.MilestoneID)
	require.Equal(t, "teach variables", received.InitialPrompt)
}

func TestCreateConversationSurfacesUpstreamStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "seed rejected", http.StatusUnprocessableEntity)
	})

	_, err := client.CreateConversation(context.Background(), ConversationSeed{MilestoneID: "m1"})
	require.ErrorIs(t, err, ErrUnavailable)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusUnprocessableEntity, upstream.StatusCode)
	require.Equal(t, "seed rejected", upstream.Message)
}

func TestCreateConversationTransportFailure(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.CreateConversation(context.Background(), ConversationSeed{MilestoneID: "m1"})
	require.ErrorIs(t, err, ErrUnavailable)

	var upstream *UpstreamError
	require.False(t, errors.As(err, &upstream), "transport failures carry no upstream status")
}

func TestCreateConversationRejectsEmptyID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.CreateConversation(context.Background(), ConversationSeed{MilestoneID: "m1"})
	require.ErrorIs(t, err, ErrUnavailable)
}
