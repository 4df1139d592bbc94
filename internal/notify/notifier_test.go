package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type mockSender struct {
	name string
	sent []string
	err  error
}

func (m *mockSender) Send(ctx context.Context, title, message string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, title)
	return nil
}

func (m *mockSender) Name() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEvent(t *testing.T) {
	s := &mockSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{"order_placed"}, testLogger())

	if err := n.Notify(context.Background(), "order_placed", "Order placed", "buy 0.001 BTC/USDT"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := n.Notify(context.Background(), "order_failed", "Order failed", "rejected"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(s.sent) != 1 || s.sent[0] != "Order placed" {
		t.Errorf("sent = %v, want [Order placed]", s.sent)
	}
}

func TestNotifyEmptyEventListAllowsAll(t *testing.T) {
	s := &mockSender{name: "discord"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(s.sent))
	}
}

func TestNotifyOneSenderFailureStillDeliversToOthers(t *testing.T) {
	bad := &mockSender{name: "telegram", err: errors.New("api down")}
	good := &mockSender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), "order_placed", "t", "m")
	if err == nil {
		t.Fatal("expected combined error from failing sender")
	}
	if len(good.sent) != 1 {
		t.Errorf("healthy sender got %d messages, want 1", len(good.sent))
	}
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	if err := n.Notify(context.Background(), "x", "t", "m"); err != nil {
		t.Errorf("Notify with no senders: %v", err)
	}
}
