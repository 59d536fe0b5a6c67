package bazaar

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestFetchLive(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"lastUpdated": 1700000000000,
			"products": {
				"DIAMOND": {
					"product_id": "DIAMOND",
					"buy_summary": [{"pricePerUnit": 12, "amount": 10, "orders": 1}],
					"sell_summary": [{"pricePerUnit": 10, "amount": 10, "orders": 1}],
					"quick_status": {"buyPrice": 12, "sellPrice": 10, "buyMovingWeek": 1680, "sellMovingWeek": 168}
				}
			}
		}`))
	}))
	defer ts.Close()

	snap, err := NewClient(ts.URL, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.LastUpdated != 1700000000000 {
		t.Errorf("lastUpdated = %d", snap.LastUpdated)
	}
	prod, ok := snap.Products["DIAMOND"]
	if !ok {
		t.Fatal("DIAMOND missing from snapshot")
	}
	if prod.BuySummary[0].PricePerUnit != 12 || prod.QuickStatus.BuyMovingWeek != 1680 {
		t.Errorf("product = %+v", prod)
	}
}

func TestFetchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	snap, err := NewClient(ts.URL, nil).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if snap != nil {
		t.Errorf("snapshot = %+v, want nil without a cache to fall back on", snap)
	}
}

func TestFetchAPIFailureFlag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "lastUpdated": 5}`))
	}))
	defer ts.Close()

	if _, err := NewClient(ts.URL, nil).Fetch(context.Background()); err == nil {
		t.Fatal("expected error when the API reports success=false")
	}
}

func TestFetchGzipEncoded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"success": true, "lastUpdated": 42, "products": {}}`))
		gz.Close()
	}))
	defer ts.Close()

	snap, err := NewClient(ts.URL, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.LastUpdated != 42 {
		t.Errorf("lastUpdated = %d, want 42", snap.LastUpdated)
	}
}

func TestFetchLowestBins(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Encoding"); got != "gzip, br" {
			t.Errorf("Accept-Encoding = %q, want \"gzip, br\"", got)
		}
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		bw.Write([]byte(`{"HYPERION": 1000000000, "GHOST": 0, "log": 5}`))
		bw.Close()
	}))
	defer ts.Close()

	c := NewClient("", nil)
	c.binURL = ts.URL
	bins, err := c.FetchLowestBins(context.Background())
	if err != nil {
		t.Fatalf("FetchLowestBins: %v", err)
	}
	if bins["HYPERION"] != 1e9 {
		t.Errorf("HYPERION = %v, want 1e9", bins["HYPERION"])
	}
	if _, ok := bins["GHOST"]; ok {
		t.Error("zero-priced listing should be dropped")
	}
	if bins["OAK_LOG"] != 5 {
		t.Errorf("legacy ID should be normalized, got %v", bins)
	}
}

func TestFetchLowestBinsServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient("", nil)
	c.binURL = ts.URL
	if _, err := c.FetchLowestBins(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchBadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": tru`))
	}))
	defer ts.Close()

	if _, err := NewClient(ts.URL, nil).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
