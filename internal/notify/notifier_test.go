package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSender struct {
	name   string
	sent   []string
	sendFn func(ctx context.Context, title, message string) error
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	f.sent = append(f.sent, title)
	if f.sendFn != nil {
		return f.sendFn(ctx, title, message)
	}
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFiltersEvents(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventCycleCompleted}, discard())

	if err := n.Notify(context.Background(), EventCycleCompleted, "done", "msg"); err != nil {
		t.Fatalf("Notify(completed) = %v", err)
	}
	if err := n.Notify(context.Background(), EventCycleAbandoned, "skipped", "msg"); err != nil {
		t.Fatalf("Notify(abandoned) = %v", err)
	}

	if len(sender.sent) != 1 || sender.sent[0] != "done" {
		t.Errorf("sent = %v, want only %q", sender.sent, "done")
	}
}

func TestNotifierNoEventsConfiguredSendsAll(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, discard())

	for _, event := range []string{EventCycleCompleted, EventCycleFailed, EventProfitSplit} {
		if err := n.Notify(context.Background(), event, event, "msg"); err != nil {
			t.Fatalf("Notify(%s) = %v", event, err)
		}
	}
	if len(sender.sent) != 3 {
		t.Errorf("sent %d notifications, want 3", len(sender.sent))
	}
}

func TestNotifierSenderFailureDoesNotBlockOthers(t *testing.T) {
	failing := &fakeSender{name: "bad", sendFn: func(context.Context, string, string) error {
		return io.ErrUnexpectedEOF
	}}
	working := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{failing, working}, nil, discard())

	err := n.Notify(context.Background(), EventCycleCompleted, "title", "msg")
	if err == nil {
		t.Fatal("Notify() = nil, want combined error")
	}
	if len(working.sent) != 1 {
		t.Errorf("second sender got %d sends, want 1", len(working.sent))
	}
}

func TestDiscordSenderPostsLabeledContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL).WithLabel("BTC-USD")
	if err := s.Send(context.Background(), "Cycle completed", "profit 9.00"); err != nil {
		t.Fatalf("Send() = %v", err)
	}

	content, _ := got["content"].(string)
	if !strings.HasPrefix(content, "**[BTC-USD] Cycle completed**") {
		t.Errorf("content = %q, want labeled bold title prefix", content)
	}
	if !strings.Contains(content, "profit 9.00") {
		t.Errorf("content = %q, missing message body", content)
	}
}

func TestDiscordSenderSurfacesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("Send() = nil, want error")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v, want status in message", err)
	}
}
