package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dipwatch/internal/domain/model"
)

func TestQuoteHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/AAPL/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"AAPL","price":182.5,"changePercent":-1.2,"timestamp":"2025-09-12T14:30:00Z"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	s, err := c.Quote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if s.Symbol != "AAPL" || s.AssetType != model.AssetStock {
		t.Errorf("sample identity mismatch: %+v", s)
	}
	if s.Price != 182.5 || s.Change24h != -1.2 {
		t.Errorf("sample values mismatch: %+v", s)
	}
	want, _ := time.Parse(time.RFC3339, "2025-09-12T14:30:00Z")
	if !s.ObservedAt.Equal(want) {
		t.Errorf("timestamp not honored: %v", s.ObservedAt)
	}
}

func TestQuoteErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"unknown symbol"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Quote(context.Background(), "NOPE"); err == nil {
		t.Error("error field in the body must fail the quote")
	}
}

func TestQuoteBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Quote(context.Background(), "AAPL"); err == nil {
		t.Error("non-200 status must fail the quote")
	}
}

func TestQuoteRejectsNonPositivePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"AAPL","price":0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Quote(context.Background(), "AAPL"); err == nil {
		t.Error("zero price must fail the quote")
	}
}

func TestQuoteEmptySymbol(t *testing.T) {
	c := NewClient("http://localhost:1", time.Second)
	if _, err := c.Quote(context.Background(), "  "); err == nil {
		t.Error("blank symbol must fail before the request")
	}
}
