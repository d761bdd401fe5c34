package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"projecthub/internal/config"
)

func TestSendViaResend(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New(config.EmailConfig{FromEmail: "pm@example.com", ResendAPIKey: "key"})
	m.endpoint = srv.URL

	if err := m.Send(context.Background(), "a@example.com", "Hallo", "<p>x</p>"); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer key" {
		t.Errorf("authorization = %q", auth)
	}
	if got.From != "pm@example.com" || len(got.To) != 1 || got.To[0] != "a@example.com" || got.Subject != "Hallo" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestSendViaResendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	m := New(config.EmailConfig{ResendAPIKey: "key"})
	m.endpoint = srv.URL
	err := m.Send(context.Background(), "a@example.com", "s", "b")
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSendWithoutTransport(t *testing.T) {
	if err := New(config.EmailConfig{}).Send(context.Background(), "a@example.com", "s", "b"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("from@x", "to@x", "Betreff", "<p>hi</p>"))
	if !strings.HasPrefix(msg, "From: from@x\r\nTo: to@x\r\nSubject: Betreff\r\n") || !strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>") {
		t.Errorf("unexpected message: %q", msg)
	}
}
