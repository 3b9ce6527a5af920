package sink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/actiongate/internal/config"
)

func twilioConfig(base string) config.SinkConfig {
	return config.SinkConfig{
		Type:       config.SinkTwilio,
		BaseURL:    base,
		AccountSID: "AC123",
		AuthToken:  "auth-token",
		From:       "+15550000001",
		To:         "+15550000002",
		Retry:      fastRetry(),
	}
}

func TestTwilioSend_Success(t *testing.T) {
	var (
		path, user, pass, contentType string
		to, from, body                string
		authOK                        bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, pass, authOK = r.BasicAuth()
		contentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		to, from, body = r.PostForm.Get("To"), r.PostForm.Get("From"), r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	logger, _ := newTestLogger()
	tw := NewTwilio("sms", twilioConfig(srv.URL), srv.Client(), logger)

	ev := testEvent()
	ev.Message = "User created"
	require.NoError(t, tw.Send(context.Background(), ev))

	assert.Equal(t, "sms", tw.Name())
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", path)
	assert.True(t, authOK)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "auth-token", pass)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Equal(t, "+15550000002", to)
	assert.Equal(t, "+15550000001", from)
	assert.Equal(t, "User created", body)
}

func TestTwilioSend_DefaultMessage(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		body = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	logger, _ := newTestLogger()
	tw := NewTwilio("sms", twilioConfig(srv.URL), srv.Client(), logger)

	require.NoError(t, tw.Send(context.Background(), testEvent()))
	assert.Equal(t, config.DefaultNotifyMessage, body)
}

func TestTwilioSend_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	logger, _ := newTestLogger()
	tw := NewTwilio("sms", twilioConfig(srv.URL), srv.Client(), logger)

	err := tw.Send(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "Invalid 'To' Phone Number")
}

func TestNewTwilio_DefaultBaseURL(t *testing.T) {
	logger, _ := newTestLogger()
	cfg := twilioConfig("")
	tw := NewTwilio("sms", cfg, http.DefaultClient, logger)
	assert.Equal(t, "https://api.twilio.com/2010-04-01/Accounts/AC123/Messages.json", tw.endpoint)
}
