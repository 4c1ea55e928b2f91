package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("ids") != "bitcoin" || r.URL.Query().Get("vs_currencies") != "gbp" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"gbp":39998.01}}`))
	}))
	defer server.Close()

	client := NewClient("GBP", WithBaseURL(server.URL))
	rate, err := client.GetRate(context.Background(), AssetBitcoin)
	if err != nil {
		t.Fatalf("get rate: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("39998.01")) {
		t.Fatalf("quote lost precision: %s", rate)
	}
}

func TestGetRate_MissingQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("gbp", WithBaseURL(server.URL))
	if _, err := client.GetRate(context.Background(), AssetMonero); err == nil {
		t.Fatal("expected error for missing quote")
	}
}

func TestGetRate_NonPositiveRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"monero":{"gbp":0}}`))
	}))
	defer server.Close()

	client := NewClient("gbp", WithBaseURL(server.URL))
	if _, err := client.GetRate(context.Background(), AssetMonero); err == nil {
		t.Fatal("expected error for zero rate")
	}
}

func TestGetRate_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("gbp", WithBaseURL(server.URL))
	if _, err := client.GetRate(context.Background(), AssetBitcoin); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}
