package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendReturnsTickets(t *testing.T) {
	var received []Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		tickets := make([]Ticket, len(received))
		for i := range tickets {
			tickets[i] = Ticket{Status: "ok", ID: "ticket-1"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": tickets})
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL))
	tickets, err := client.Send(context.Background(), []Message{
		{To: "ExponentPushToken[abc]", Title: "CRITICAL Blood Request!", Body: "O- needed at Central Hospital"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(tickets) != 1 || !tickets[0].Ok() {
		t.Fatalf("unexpected tickets %+v", tickets)
	}
	if len(received) != 1 || received[0].To != "ExponentPushToken[abc]" {
		t.Fatalf("unexpected forwarded messages %+v", received)
	}
}

func TestSendBatchesLargeInput(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var batch []Message
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(batch) > 2 {
			t.Errorf("batch of %d exceeds configured size", len(batch))
		}
		tickets := make([]Ticket, len(batch))
		for i := range tickets {
			tickets[i] = Ticket{Status: "ok"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": tickets})
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL), WithBatchSize(2))
	messages := make([]Message, 5)
	for i := range messages {
		messages[i] = Message{To: "ExponentPushToken[tok]", Title: "t", Body: "b"}
	}

	tickets, err := client.Send(context.Background(), messages)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(tickets) != 5 {
		t.Fatalf("expected 5 tickets, got %d", len(tickets))
	}
	if calls != 3 {
		t.Fatalf("expected 3 gateway calls, got %d", calls)
	}
}

func TestSendGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL))
	if _, err := client.Send(context.Background(), []Message{{To: "tok", Title: "t", Body: "b"}}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestSendEmptyInputIsNoop(t *testing.T) {
	client := NewClient()
	tickets, err := client.Send(context.Background(), nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if tickets != nil {
		t.Fatalf("expected no tickets, got %+v", tickets)
	}
}
