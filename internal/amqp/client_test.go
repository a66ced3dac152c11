package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"saldos/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{70, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"channel closed", errors.New("message channel closed"), true},
		{"other error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "saldos", queueName: "balance_recorded"}

	if client.isCircuitOpen() {
		t.Fatal("circuit should start closed")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("circuit should open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should go half-open after timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", client.state)
	}

	// a single failure while half-open reopens
	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("failure in half-open state should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should reset the breaker")
	}
}

func TestClient_PublishBalanceRecorded_Guards(t *testing.T) {
	key := core.BalanceKey{AccountCode: "CTA1", Seq: 42}

	t.Run("open circuit", func(t *testing.T) {
		client := &Client{}
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishBalanceRecorded(context.Background(), key)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("err = %v, want ErrCircuitOpen", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := &Client{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishBalanceRecorded(ctx, key); err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}

func TestBalanceRecordedMessage(t *testing.T) {
	key := core.BalanceKey{AccountCode: "CTA1", Seq: 1709294400000000}
	msg := NewBalanceRecordedMessage(key)

	if msg.MessageID == "" {
		t.Fatal("message id should be set")
	}
	if msg.Key() != key {
		t.Fatalf("Key() = %v, want %v", msg.Key(), key)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(body), `"account_code":"CTA1"`) {
		t.Fatalf("unexpected body %s", body)
	}

	parsed, err := BalanceRecordedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("BalanceRecordedMessageFromJSON() error = %v", err)
	}
	if parsed.Key() != key || parsed.MessageID != msg.MessageID {
		t.Fatalf("parsed = %+v, want %+v", parsed, msg)
	}
}

func TestBalanceRecordedMessage_Invalid(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"account_code": "CTA1", "seq": "x"}`,
		`{"account_code": "", "seq": 1}`,
		`{"account_code": "CTA1", "seq": 0}`,
	} {
		if _, err := BalanceRecordedMessageFromJSON([]byte(body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
}
