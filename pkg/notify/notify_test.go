package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/sirupsen/logrus"
)

const testToken = "123456:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi"

func TestTelegramNotifierSends(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramConfig{BotToken: testToken, ChatID: "42", APIURL: srv.URL})
	if err != nil {
		t.Fatalf("NewTelegramNotifier: %v", err)
	}
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/sendMessage") {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestTelegramNotifierReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramConfig{BotToken: testToken, ChatID: "@alerts", APIURL: srv.URL})
	if err != nil {
		t.Fatalf("NewTelegramNotifier: %v", err)
	}
	if err := n.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error from rejected send")
	}
}

func TestNewFallsBackToLog(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	n, err := New(TelegramConfig{}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := n.(*LogNotifier); !ok {
		t.Fatalf("expected LogNotifier, got %T", n)
	}
	if err := n.Send(context.Background(), "x"); err != nil {
		t.Fatalf("log notifier should not fail: %v", err)
	}
}

func TestEventMessages(t *testing.T) {
	at := time.Date(2026, 1, 20, 10, 5, 9, 0, time.UTC)
	key := models.ContractKey{Strike: 23500, Side: models.SideCall}

	entry := EventMessage(models.Event{
		Type:     models.EventEntry,
		Key:      key,
		Position: &models.Position{Key: key, EntryPrice: 100, Target: 115, StopLoss: 89, EntryTime: at},
	}, 3, time.UTC)
	for _, want := range []string{"ENTRY SIGNAL", "Strike: 23500 CE", "Entry Price: ₹100.00", "Time: 10:05:09 AM"} {
		if !strings.Contains(entry, want) {
			t.Fatalf("entry message missing %q:\n%s", want, entry)
		}
	}

	exit := EventMessage(models.Event{
		Type:        models.EventExit,
		Key:         key,
		Consecutive: 1,
		Trade: &models.Trade{
			Key: key, EntryPrice: 100, ExitPrice: 116, LotSize: 25,
			PnLPerUnit: 16, PnLTotal: 400, Outcome: models.OutcomeTarget, ExitTime: at,
		},
	}, 3, time.UTC)
	for _, want := range []string{"TARGET HIT", "Total P&L: ₹400.00 (25 qty)", "Consecutive CE trades: 1/3"} {
		if !strings.Contains(exit, want) {
			t.Fatalf("exit message missing %q:\n%s", want, exit)
		}
	}

	if msg := EventMessage(models.Event{Type: models.EventQualified}, 3, time.UTC); msg != "" {
		t.Fatalf("qualified events should not notify, got %q", msg)
	}
}

func TestRecoveryMessageIncludesError(t *testing.T) {
	msg := RecoveryMessage(5, errors.New("boom"))
	if !strings.Contains(msg, "5 consecutive") || !strings.Contains(msg, "boom") {
		t.Fatalf("unexpected recovery message %q", msg)
	}
}
