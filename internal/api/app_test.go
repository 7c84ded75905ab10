package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ameline/sealbox/internal/command"
	"github.com/ameline/sealbox/internal/delivery"
	"github.com/ameline/sealbox/internal/storage"
	"github.com/ameline/sealbox/internal/vault"
)

const testToken = "test-token"

type testApp struct {
	handler http.Handler
	clock   *testClock
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := &testClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	v := vault.New(store, 90*24*time.Hour, vault.WithClock(clock.now))
	checker := delivery.NewChecker(v, time.Hour, nil)
	dispatcher, err := command.NewDispatcher("en-US")
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	return &testApp{
		handler: NewAppHandler(AppDeps{
			Vault:      v,
			Checker:    checker,
			Dispatcher: dispatcher,
			Token:      testToken,
			Version:    "test",
		}),
		clock: clock,
	}
}

func (a *testApp) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func saveBody(content []byte) map[string]any {
	return map[string]any{
		"type":      "voice",
		"content":   base64.StdEncoding.EncodeToString(content),
		"mime_type": "audio/webm",
		"note":      "for later",
		"duration":  "00:42",
	}
}

func TestHealthIsPublic(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthWrongToken(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSaveMessage(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/messages", saveBody([]byte("audio")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var meta MessageMeta
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if meta.ID == "" {
		t.Error("empty message ID")
	}
	if meta.Ready {
		t.Error("freshly sealed message reported ready")
	}
	if meta.Status != storage.StatusPending {
		t.Errorf("Status = %q, want pending", meta.Status)
	}
	if meta.Duration != "00:42" {
		t.Errorf("Duration = %q, want 00:42", meta.Duration)
	}
}

func TestSaveMessageValidation(t *testing.T) {
	a := newTestApp(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing content", map[string]any{"type": "voice", "mime_type": "audio/webm"}},
		{"bad base64", map[string]any{"type": "voice", "content": "!!!", "mime_type": "audio/webm"}},
		{"bad type", map[string]any{"type": "video", "content": "aGk=", "mime_type": "video/mp4"}},
		{"bad delay", map[string]any{"type": "voice", "content": "aGk=", "mime_type": "audio/webm", "delivery_delay": "soon"}},
		{"bad duration", map[string]any{"type": "voice", "content": "aGk=", "mime_type": "audio/webm", "duration": "forever"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.request(t, http.MethodPost, "/messages", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestViewSealedMessageConflicts(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/messages", saveBody([]byte("audio")))
	var meta MessageMeta
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decoding save response: %v", err)
	}

	rec = a.request(t, http.MethodPost, "/messages/"+meta.ID+"/view", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body)
	}

	var body struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body.Error.Type != "not_ready" {
		t.Errorf("error type = %q, want not_ready", body.Error.Type)
	}
}

func TestViewAfterDelivery(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/messages", saveBody([]byte("hello future")))
	var meta MessageMeta
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decoding save response: %v", err)
	}

	a.clock.t = a.clock.t.Add(91 * 24 * time.Hour)

	rec = a.request(t, http.MethodPost, "/messages/"+meta.ID+"/view", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var body struct {
		Message MessageMeta `json:"message"`
		Content string      `json:"content"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding view response: %v", err)
	}
	if body.Message.Status != storage.StatusViewed {
		t.Errorf("Status = %q, want viewed", body.Message.Status)
	}
	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		t.Fatalf("decoding content: %v", err)
	}
	if string(decoded) != "hello future" {
		t.Errorf("content = %q", decoded)
	}
}

func TestViewMissingMessage(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/messages/nope/view", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCounts(t *testing.T) {
	a := newTestApp(t)

	a.request(t, http.MethodPost, "/messages", saveBody([]byte("one")))
	body := saveBody([]byte("two"))
	body["delivery_delay"] = "1h"
	a.request(t, http.MethodPost, "/messages", body)

	a.clock.t = a.clock.t.Add(2 * time.Hour)

	at := a.clock.t.Format(time.RFC3339)
	rec := a.request(t, http.MethodGet, "/messages/counts?at="+at, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var counts vault.Counts
	if err := json.NewDecoder(rec.Body).Decode(&counts); err != nil {
		t.Fatalf("decoding counts: %v", err)
	}
	if counts.Total != 2 || counts.Pending != 1 || counts.Ready != 1 {
		t.Errorf("counts = %+v, want total 2, pending 1, ready 1", counts)
	}
}

func TestListMessages(t *testing.T) {
	a := newTestApp(t)

	for i := 0; i < 3; i++ {
		a.request(t, http.MethodPost, "/messages", saveBody([]byte(fmt.Sprintf("msg %d", i))))
	}

	rec := a.request(t, http.MethodGet, "/messages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		Messages []MessageMeta `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(body.Messages) != 3 {
		t.Errorf("got %d messages, want 3", len(body.Messages))
	}
}

func TestDeleteMessage(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/messages", saveBody([]byte("x")))
	var meta MessageMeta
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decoding save response: %v", err)
	}

	rec = a.request(t, http.MethodDelete, "/messages/"+meta.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body)
	}

	rec = a.request(t, http.MethodDelete, "/messages/"+meta.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestCommandEndpoint(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/command", map[string]string{"utterance": "sav message"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var res command.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if !res.Recognized || res.Action != command.ActionVaultSave {
		t.Errorf("result = %+v, want vault.save", res)
	}
}

func TestCommandUnrecognized(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/command", map[string]string{"utterance": "what time is it"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var res command.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if res.Recognized {
		t.Errorf("recognized %+v, want miss", res)
	}
	if len(res.Suggestions) == 0 {
		t.Error("no suggestions for unrecognized utterance")
	}
}

func TestLocaleEndpoints(t *testing.T) {
	a := newTestApp(t)

	rec := a.request(t, http.MethodPost, "/locale", map[string]string{"locale": "de-DE"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set locale status = %d: %s", rec.Code, rec.Body)
	}

	rec = a.request(t, http.MethodGet, "/locales", nil)
	var body struct {
		Active  string   `json:"active"`
		Locales []string `json:"locales"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding locales: %v", err)
	}
	if body.Active != "de-DE" {
		t.Errorf("active = %q, want de-DE", body.Active)
	}
	if len(body.Locales) != 4 {
		t.Errorf("got %d locales, want 4", len(body.Locales))
	}

	rec = a.request(t, http.MethodPost, "/locale", map[string]string{"locale": "xx-XX"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown locale status = %d, want 400", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	a := newTestApp(t)

	a.request(t, http.MethodPost, "/messages", saveBody([]byte("x")))

	rec := a.request(t, http.MethodPost, "/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var snap delivery.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.Counts.Total != 1 {
		t.Errorf("Total = %d, want 1", snap.Counts.Total)
	}
}
