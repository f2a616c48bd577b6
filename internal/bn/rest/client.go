package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bn-ladder-bot/internal/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const depthLimit = 10

// Client is the signed REST client for the Binance spot v3 and USD-M
// futures v1 endpoints the bot mutates through.
type Client struct {
	spotBaseURL    string
	futuresBaseURL string
	apiKey         string
	apiSecret      string
	http           *http.Client
	log            *zap.Logger
	now            func() time.Time
}

type Config struct {
	SpotBaseURL    string
	FuturesBaseURL string
	APIKey         string
	APISecret      string
	Timeout        time.Duration
}

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		spotBaseURL:    strings.TrimRight(cfg.SpotBaseURL, "/"),
		futuresBaseURL: strings.TrimRight(cfg.FuturesBaseURL, "/"),
		apiKey:         cfg.APIKey,
		apiSecret:      cfg.APISecret,
		http:           &http.Client{Timeout: timeout},
		log:            log,
		now:            time.Now,
	}
}

// spotURL joins a versioned path onto the spot base. The default base
// already ends in /api; a bare host works too.
func (c *Client) spotURL(path string) string {
	path = strings.TrimLeft(path, "/")
	if strings.HasSuffix(c.spotBaseURL, "/api") {
		return c.spotBaseURL + "/" + path
	}
	return c.spotBaseURL + "/api/" + path
}

func (c *Client) futuresURL(path string) string {
	return c.futuresBaseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) timestamp() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}

// PlaceSpotLimit submits a GTC limit order and returns the venue-assigned
// order id. Side is "BUY" or "SELL".
func (c *Client) PlaceSpotLimit(ctx context.Context, symbol, side string, qty, price float64) (string, error) {
	params := []param{
		{"symbol", symbol},
		{"side", side},
		{"type", "LIMIT"},
		{"timeInForce", "GTC"},
		{"quantity", formatAmount(qty)},
		{"price", formatAmount(price)},
		{"newClientOrderId", uuid.NewString()},
		{"timestamp", c.timestamp()},
	}
	body, err := c.signedBodyPost(ctx, c.spotURL("v3/order"), params)
	if err != nil {
		return "", err
	}
	return orderIDFromResponse(body)
}

// CancelSpotOrder cancels one resting spot order by exchange id.
func (c *Client) CancelSpotOrder(ctx context.Context, symbol, orderID string) error {
	params := []param{
		{"symbol", symbol},
		{"orderId", orderID},
		{"timestamp", c.timestamp()},
	}
	_, err := c.signedQueryRequest(ctx, http.MethodDelete, c.spotURL("v3/order"), params)
	return err
}

// Depth fetches the top of the spot book, up to 10 levels per side.
func (c *Client) Depth(ctx context.Context, symbol string) (state.OrderbookState, error) {
	url := fmt.Sprintf("%s?symbol=%s&limit=%d", c.spotURL("v3/depth"), strings.ToUpper(symbol), depthLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return state.OrderbookState{}, err
	}
	body, err := c.do(req)
	if err != nil {
		return state.OrderbookState{}, err
	}
	var payload struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return state.OrderbookState{}, fmt.Errorf("decode depth: %w", err)
	}
	bids, err := parseLevels(payload.Bids)
	if err != nil {
		return state.OrderbookState{}, fmt.Errorf("parse bids: %w", err)
	}
	asks, err := parseLevels(payload.Asks)
	if err != nil {
		return state.OrderbookState{}, fmt.Errorf("parse asks: %w", err)
	}
	return state.OrderbookState{Bids: bids, Asks: asks}, nil
}

// SetLeverage sets the futures leverage for the symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := []param{
		{"symbol", symbol},
		{"leverage", strconv.Itoa(leverage)},
		{"timestamp", c.timestamp()},
	}
	_, err := c.signedBodyPost(ctx, c.futuresURL("fapi/v1/leverage"), params)
	return err
}

// PlaceFuturesMarket submits a futures market order. reduceOnly marks a
// closing trade that can never flip the position.
func (c *Client) PlaceFuturesMarket(ctx context.Context, symbol, side string, qty float64, reduceOnly bool) (string, error) {
	params := []param{
		{"symbol", symbol},
		{"side", side},
		{"type", "MARKET"},
		{"quantity", formatAmount(qty)},
	}
	if reduceOnly {
		params = append(params, param{"reduceOnly", "true"})
	}
	params = append(params, param{"timestamp", c.timestamp()})
	body, err := c.signedBodyPost(ctx, c.futuresURL("fapi/v1/order"), params)
	if err != nil {
		return "", err
	}
	return orderIDFromResponse(body)
}

// CreateListenKey opens a user-data stream session.
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.spotURL("v3/userDataStream"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	var payload struct {
		ListenKey string `json:"listenKey"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode listenKey: %w", err)
	}
	if payload.ListenKey == "" {
		return "", errors.New("listenKey missing in response")
	}
	return payload.ListenKey, nil
}

// KeepAliveListenKey extends a user-data stream session. The exchange
// expires keys after 60 minutes without a keepalive.
func (c *Client) KeepAliveListenKey(ctx context.Context, listenKey string) error {
	url := c.spotURL("v3/userDataStream") + "?listenKey=" + listenKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	_, err = c.do(req)
	return err
}

// signedBodyPost sends the query string as the request body with the
// signature as a URL parameter. The signature covers the body alone.
func (c *Client) signedBodyPost(ctx context.Context, url string, params []param) ([]byte, error) {
	query := buildQuery(params)
	signature := sign(c.apiSecret, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"?signature="+signature, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// signedQueryRequest sends everything, signature included, in the URL query.
func (c *Client) signedQueryRequest(ctx context.Context, method, url string, params []param) ([]byte, error) {
	query := buildQuery(params)
	signature := sign(c.apiSecret, query)
	req, err := http.NewRequestWithContext(ctx, method, url+"?"+query+"&signature="+signature, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func orderIDFromResponse(body []byte) (string, error) {
	var payload struct {
		OrderID json.Number `json:"orderId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	if payload.OrderID.String() == "" {
		return "", errors.New("orderId missing in response")
	}
	return payload.OrderID.String(), nil
}

func parseLevels(raw [][]string) ([]state.OrderbookLevel, error) {
	levels := make([]state.OrderbookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			return nil, errors.New("invalid orderbook level format")
		}
		price, err := strconv.ParseFloat(entry[0], 64)
		if err != nil {
			return nil, err
		}
		qty, err := strconv.ParseFloat(entry[1], 64)
		if err != nil {
			return nil, err
		}
		levels = append(levels, state.OrderbookLevel{Price: price, Qty: qty})
		if len(levels) == depthLimit {
			break
		}
	}
	return levels, nil
}
