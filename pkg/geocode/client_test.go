package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReverseMapsAddressFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "jsonv2" {
			t.Errorf("expected jsonv2 format, got %q", r.URL.Query().Get("format"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "Baku, Azerbaijan",
			"address": {"city": "Baku", "state": "Absheron", "country": "Azerbaijan"}
		}`))
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL))
	place, err := client.Reverse(context.Background(), 40.4093, 49.8671)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if place.City != "Baku" || place.Region != "Absheron" || place.Country != "Azerbaijan" {
		t.Fatalf("unexpected place %+v", place)
	}
}

func TestReverseFallsBackToTown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name": "x", "address": {"town": "Qusar"}}`))
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL))
	place, err := client.Reverse(context.Background(), 41.42, 48.43)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if place.City != "Qusar" {
		t.Fatalf("expected town fallback, got %q", place.City)
	}
}

func TestReverseErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL))
	if _, err := client.Reverse(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
