package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpoPushToken(t *testing.T) {
	assert.True(t, IsExpoPushToken("ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"))
	assert.True(t, IsExpoPushToken("ExpoPushToken[abc]"))
	assert.False(t, IsExpoPushToken("ExpoPushToken[]"))
	assert.False(t, IsExpoPushToken("fcm:abcdef"))
	assert.False(t, IsExpoPushToken(""))
}

func TestExpoClientSkipsInvalidTokens(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := NewExpoClient(ExpoConfig{Endpoint: srv.URL})
	err := client.Notify(context.Background(), []string{"not-a-token", ""}, Message{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestExpoClientChunksAndAuthenticates(t *testing.T) {
	var (
		mu     sync.Mutex
		sizes  []int
		titles []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var batch []expoMessage
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch)) || len(batch) == 0 {
			return
		}

		mu.Lock()
		sizes = append(sizes, len(batch))
		titles = append(titles, batch[0].Title)
		mu.Unlock()

		tickets := make([]map[string]string, len(batch))
		for i := range tickets {
			tickets[i] = map[string]string{"status": "ok", "id": fmt.Sprint(i)}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": tickets})
	}))
	defer srv.Close()

	tokens := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		tokens = append(tokens, fmt.Sprintf("ExponentPushToken[%03d]", i))
	}

	client := NewExpoClient(ExpoConfig{Endpoint: srv.URL, AccessToken: "secret"})
	err := client.Notify(context.Background(), tokens, Message{Title: "Jeju trip", Body: "mina uploaded 3 photos"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{100, 50}, sizes)
	assert.Equal(t, []string{"Jeju trip", "Jeju trip"}, titles)
}

func TestExpoClientReportsRejectedTickets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}]}`))
	}))
	defer srv.Close()

	client := NewExpoClient(ExpoConfig{Endpoint: srv.URL})
	err := client.Notify(context.Background(), []string{"ExpoPushToken[gone]"}, Message{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeviceNotRegistered")
}

func TestExpoClientReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[{"code":"TOO_MANY_REQUESTS","message":"slow down"}]}`))
	}))
	defer srv.Close()

	client := NewExpoClient(ExpoConfig{Endpoint: srv.URL})
	err := client.Notify(context.Background(), []string{"ExpoPushToken[a]"}, Message{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}
