package rest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(spotURL, futuresURL string) *Client {
	c := New(Config{
		SpotBaseURL:    spotURL + "/api",
		FuturesBaseURL: futuresURL,
		APIKey:         "test-key",
		APISecret:      "test-secret",
		Timeout:        time.Second,
	}, zap.NewNop())
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func expectedSignature(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPlaceSpotLimitSignsBody(t *testing.T) {
	var gotBody, gotSig, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotSig = r.URL.Query().Get("signature")
		gotKey = r.Header.Get("X-MBX-APIKEY")
		w.Write([]byte(`{"orderId": 123456}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	orderID, err := client.PlaceSpotLimit(context.Background(), "ACTUSDT", "BUY", 500, 0.9999)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if orderID != "123456" {
		t.Fatalf("expected orderId 123456, got %q", orderID)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if !strings.HasPrefix(gotBody, "symbol=ACTUSDT&side=BUY&type=LIMIT&timeInForce=GTC&quantity=500&price=0.9999&newClientOrderId=") {
		t.Fatalf("unexpected body: %s", gotBody)
	}
	if !strings.HasSuffix(gotBody, "&timestamp=1700000000000") {
		t.Fatalf("expected trailing timestamp, got %s", gotBody)
	}
	if gotSig != expectedSignature("test-secret", gotBody) {
		t.Fatalf("signature does not cover the body sent")
	}
}

func TestCancelSpotOrderSignsQuery(t *testing.T) {
	var gotQuery url.Values
	var gotRaw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v3/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.Query()
		gotRaw = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if err := client.CancelSpotOrder(context.Background(), "ACTUSDT", "777"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if gotQuery.Get("orderId") != "777" || gotQuery.Get("symbol") != "ACTUSDT" {
		t.Fatalf("unexpected query: %v", gotQuery)
	}
	signed := strings.TrimSuffix(gotRaw, "&signature="+gotQuery.Get("signature"))
	if gotQuery.Get("signature") != expectedSignature("test-secret", signed) {
		t.Fatalf("signature does not cover the query sent")
	}
}

func TestPlaceFuturesMarketReduceOnly(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/order" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"orderId": 42}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if _, err := client.PlaceFuturesMarket(context.Background(), "ACTUSDT", "BUY", 500, true); err != nil {
		t.Fatalf("place futures: %v", err)
	}
	if !strings.Contains(gotBody, "side=BUY&type=MARKET&quantity=500&reduceOnly=true&timestamp=") {
		t.Fatalf("unexpected body: %s", gotBody)
	}
}

func TestDepthParsesTopLevels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/depth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("expected limit=10, got %s", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`{"bids":[["1.0000","10"],["0.9999","10"]],"asks":[["1.0001","5"]]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	book, err := client.Depth(context.Background(), "actusdt")
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if len(book.Bids) != 2 || book.Bids[0].Price != 1.0 || book.Bids[0].Qty != 10 {
		t.Fatalf("unexpected bids: %+v", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Price != 1.0001 {
		t.Fatalf("unexpected asks: %+v", book.Asks)
	}
}

func TestRejectionCarriesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1013,"msg":"Filter failure: PRICE_FILTER"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.PlaceSpotLimit(context.Background(), "ACTUSDT", "BUY", 500, 0.00001)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Body, "PRICE_FILTER") {
		t.Fatalf("expected venue body retained, got %q", apiErr.Body)
	}
}

func TestListenKeyLifecycle(t *testing.T) {
	var keepAliveKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/userDataStream" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodPost:
			w.Write([]byte(`{"listenKey":"abc123"}`))
		case http.MethodPut:
			keepAliveKey = r.URL.Query().Get("listenKey")
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	key, err := client.CreateListenKey(context.Background())
	if err != nil {
		t.Fatalf("create listen key: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected listen key abc123, got %q", key)
	}
	if err := client.KeepAliveListenKey(context.Background(), key); err != nil {
		t.Fatalf("keepalive: %v", err)
	}
	if keepAliveKey != "abc123" {
		t.Fatalf("keepalive did not carry the listen key")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{500, "500"},
		{0.9999, "0.9999"},
		{1.0, "1"},
		{0.00000012, "0.00000012"},
		{12.3400, "12.34"},
	}
	for _, tc := range cases {
		if got := formatAmount(tc.in); got != tc.want {
			t.Fatalf("formatAmount(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
