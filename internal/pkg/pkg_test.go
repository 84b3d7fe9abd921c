package pkg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignAccess(secret, 42, time.Minute)
	require.NoError(t, err)

	claims, err := NewTokenVerifier(secret).ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := SignAccess(secret, 1, -time.Minute)
	require.NoError(t, err)
	_, err = NewTokenVerifier(secret).ParseAccess(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	other, err := SignAccess([]byte("other"), 1, time.Minute)
	require.NoError(t, err)
	_, err = NewTokenVerifier(secret).ParseAccess(other)
	assert.Error(t, err)
}

func TestModerationClient_Classify(t *testing.T) {
	var gotText, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText = body["text"]
		gotAuth = r.Header.Get("Authorization")
		if gotText == "bad words" {
			_, _ = w.Write([]byte(`{"isAppropriate":false,"reasonMessage":"insult","category":"harassment"}`))
			return
		}
		_, _ = w.Write([]byte(`{"is_appropriate":true}`))
	}))
	defer srv.Close()

	c := NewModerationClient(srv.URL, "k", srv.Client())

	v, err := c.Classify(context.Background(), "hello readers")
	require.NoError(t, err)
	assert.True(t, v.IsAppropriate)
	assert.Equal(t, "hello readers", gotText)
	assert.Equal(t, "Bearer k", gotAuth)

	v, err = c.Classify(context.Background(), "bad words")
	require.NoError(t, err)
	assert.False(t, v.IsAppropriate)
	assert.Equal(t, "insult", v.ReasonMessage)
	assert.Equal(t, "harassment", v.Category)
}

func TestModerationClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/garbage":
			_, _ = w.Write([]byte(`not json`))
		default:
			_, _ = w.Write([]byte(`{"category":"none"}`))
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/down", "/garbage", "/missing"} {
		_, err := NewModerationClient(srv.URL+path, "", nil).Classify(context.Background(), "x")
		assert.Error(t, err, path)
	}
}

func TestDelivery_Message(t *testing.T) {
	msg := Delivery{
		EventID:   "e-1",
		EventType: "PostLike",
		Recipient: ^uint64(0),
		Payload:   []byte(`{"message":"hi"}`),
	}.Message()

	assert.Equal(t, "18446744073709551615", string(msg.Key))
	assert.JSONEq(t, `{"message":"hi"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, HeaderEventID, msg.Headers[0].Key)
	assert.Equal(t, "e-1", string(msg.Headers[0].Value))
	assert.Equal(t, "PostLike", string(msg.Headers[1].Value))
}

func TestNewNotificationProducer_RequiresTopic(t *testing.T) {
	_, err := NewNotificationProducer(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewNotificationProducer(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNotificationHTML_Escapes(t *testing.T) {
	assert.Equal(t, "<p>Hi &lt;b&gt;,</p><p>a &amp; b</p>", NotificationHTML("<b>", "a & b"))
}
