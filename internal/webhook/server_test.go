package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/actiongate/internal/config"
	"github.com/mattjoyce/actiongate/internal/signature"
	"github.com/mattjoyce/actiongate/internal/sink"
	"github.com/mattjoyce/actiongate/internal/sink/mocks"
)

const testSecret = "test-secret"

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func testConfig(secret string) Config {
	return Config{
		Listen:         "127.0.0.1:0",
		Secret:         secret,
		ForwardTimeout: time.Second,
		Endpoints: []EndpointConfig{
			{Path: "/claim", Action: config.ActionClaims, Claims: []Claim{{Key: "group", Value: "ADMIN"}}},
			{Path: "/user", Action: config.ActionNotify, Sink: "sms", Message: "Webhook received!"},
			{Path: "/", Action: config.ActionForward, Sink: "splunk"},
		},
	}
}

// testSinks registers gomock sinks under splunk and sms.
func testSinks(t *testing.T) (*sink.Registry, *mocks.MockSink, *mocks.MockSink) {
	ctrl := gomock.NewController(t)

	splunk := mocks.NewMockSink(ctrl)
	splunk.EXPECT().Name().Return("splunk").AnyTimes()
	sms := mocks.NewMockSink(ctrl)
	sms.EXPECT().Name().Return("sms").AnyTimes()

	reg := sink.NewRegistry()
	reg.Add(splunk)
	reg.Add(sms)
	return reg, splunk, sms
}

func sign(body []byte) string {
	return "t=1700000000,v1=" + signature.Compute(testSecret, "1700000000", body)
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if header != "" {
		req.Header.Set(DefaultSignatureHeader, header)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestClaims_ValidSignature(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	s := New(testConfig(testSecret), reg, logger)

	body := []byte(`{"function":"preaccesstoken","user":{"id":"1"}}`)
	rec := doRequest(t, s, http.MethodPost, "/claim", body, sign(body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"append_claims":[{"key":"group","value":"ADMIN"}]}`, rec.Body.String())
}

func TestClaims_EmptyClaimsEncodeAsArray(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	cfg := testConfig(testSecret)
	cfg.Endpoints[0].Claims = nil
	s := New(cfg, reg, logger)

	body := []byte(`{}`)
	rec := doRequest(t, s, http.MethodPost, "/claim", body, sign(body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"append_claims":[]}`, rec.Body.String())
}

func TestClaims_InvalidJSON(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	s := New(testConfig(testSecret), reg, logger)

	body := []byte(`not json`)
	rec := doRequest(t, s, http.MethodPost, "/claim", body, sign(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON", decodeError(t, rec))
}

func TestSignatureFailures(t *testing.T) {
	body := []byte(`{"event":"user.created"}`)
	valid := sign(body)

	tests := []struct {
		name    string
		header  string
		body    []byte
		wantMsg string
	}{
		{name: "missing header", header: "", body: body, wantMsg: "missing signature"},
		{name: "missing t", header: "v1=abc", body: body, wantMsg: "malformed signature header"},
		{name: "empty v1", header: "t=1,v1=", body: body, wantMsg: "malformed signature header"},
		{name: "wrong signature", header: "t=1700000000,v1=" + strings.Repeat("0", 64), body: body, wantMsg: "invalid signature"},
		{name: "tampered body", header: valid, body: []byte(`{"event":"user.deleted"}`), wantMsg: "invalid signature"},
		{name: "replaced timestamp", header: strings.Replace(valid, "t=1700000000", "t=1700000001", 1), body: body, wantMsg: "invalid signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No sink expectations: any Send call fails the test.
			reg, _, _ := testSinks(t)
			logger, logs := newTestLogger()
			s := New(testConfig(testSecret), reg, logger)

			rec := doRequest(t, s, http.MethodPost, "/", tt.body, tt.header)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec))
			assert.NotContains(t, logs.String(), testSecret)
		})
	}
}

func TestMissingSigningKey(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	s := New(testConfig(""), reg, logger)

	body := []byte(`{}`)
	rec := doRequest(t, s, http.MethodPost, "/claim", body, sign(body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "missing signing key", decodeError(t, rec))
}

func TestForward_DeliversEvent(t *testing.T) {
	reg, splunk, _ := testSinks(t)
	logger, _ := newTestLogger()
	s := New(testConfig(testSecret), reg, logger)

	body := []byte(`{"event_type":"user.human.added","aggregateID":"123"}`)

	splunk.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, ev sink.Event) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.Equal(t, "/", ev.Endpoint)
		assert.NotEmpty(t, ev.ID)
		assert.JSONEq(t, string(body), string(ev.Payload))
		return nil
	})

	rec := doRequest(t, s, http.MethodPost, "/", body, sign(body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "event processed", resp.Status)
	assert.NotEmpty(t, resp.EventID)
}

func TestForward_SinkFailureIsSwallowed(t *testing.T) {
	reg, splunk, _ := testSinks(t)
	logger, logs := newTestLogger()
	s := New(testConfig(testSecret), reg, logger)

	splunk.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return(&sink.StatusError{Sink: "splunk", StatusCode: http.StatusServiceUnavailable})

	body := []byte(`{"event_type":"user.human.added"}`)
	rec := doRequest(t, s, http.MethodPost, "/", body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "sink delivery failed")
}

func TestForward_InvalidJSON(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	s := New(testConfig(testSecret), reg, logger)

	body := []byte(`{"truncated":`)
	rec := doRequest(t, s, http.MethodPost, "/", body, sign(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON", decodeError(t, rec))
}

func TestForward_UnregisteredSink(t *testing.T) {
	logger, logs := newTestLogger()
	s := New(testConfig(testSecret), sink.NewRegistry(), logger)

	body := []byte(`{}`)
	rec := doRequest(t, s, http.MethodPost, "/", body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "sink not registered")
}

func TestNotify_SendsMessage(t *testing.T) {
	reg, _, sms := testSinks(t)
	logger, _ := newTestLogger()
	s := New(testConfig(testSecret), reg, logger)

	sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev sink.Event) error {
		assert.Equal(t, "Webhook received!", ev.Message)
		assert.Equal(t, "/user", ev.Endpoint)
		return errors.New("twilio unreachable")
	})

	// The notify action does not parse the body.
	body := []byte(`plain text`)
	rec := doRequest(t, s, http.MethodPost, "/user", body, sign(body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCustomSignatureHeader(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	cfg := testConfig(testSecret)
	cfg.Endpoints[0].SignatureHeader = "X-Action-Signature"
	s := New(cfg, reg, logger)

	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/claim", bytes.NewReader(body))
	req.Header.Set("X-Action-Signature", sign(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyTooLarge(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	cfg := testConfig(testSecret)
	cfg.Endpoints[2].MaxBodySize = 16
	s := New(cfg, reg, logger)

	body := bytes.Repeat([]byte("a"), 64)
	rec := doRequest(t, s, http.MethodPost, "/", body, sign(body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUnknownPathAndMethod(t *testing.T) {
	reg, _, _ := testSinks(t)
	logger, _ := newTestLogger()
	s := New(testConfig(testSecret), reg, logger)

	rec := doRequest(t, s, http.MethodPost, "/unknown", []byte(`{}`), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/claim", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeError(t, rec))
}

func TestNew_AppliesDefaults(t *testing.T) {
	logger, _ := newTestLogger()
	s := New(Config{
		Secret:    testSecret,
		Endpoints: []EndpointConfig{{Path: "/claim", Action: config.ActionClaims}},
	}, sink.NewRegistry(), logger)

	ep := s.endpoints["/claim"]
	assert.Equal(t, int64(DefaultMaxBodySize), ep.MaxBodySize)
	assert.Equal(t, DefaultSignatureHeader, ep.SignatureHeader)
	assert.Equal(t, DefaultForwardTimeout, s.config.ForwardTimeout)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	logger, _ := newTestLogger()
	s := New(testConfig(testSecret), sink.NewRegistry(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
