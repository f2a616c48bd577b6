package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"nhooyr.io/websocket"
)

const defaultReconnectDelay = 5 * time.Second

// Subscriber consumes one Binance raw stream. Raw streams need no
// subscription handshake: connecting to wss-base/ws/<stream> starts the feed.
type Subscriber struct {
	url            string
	reconnectDelay time.Duration
	log            *zap.Logger
}

// StreamURL builds the raw stream endpoint for a stream name such as
// "actusdt@bookTicker" or a user-data listen key.
func StreamURL(wsBase, stream string) string {
	return strings.TrimRight(wsBase, "/") + "/ws/" + strings.TrimLeft(stream, "/")
}

func New(url string, reconnectDelay time.Duration, log *zap.Logger) *Subscriber {
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	return &Subscriber{url: url, reconnectDelay: reconnectDelay, log: log}
}

// Run reads the stream forever, invoking handler on every frame. Any dial
// or read failure is followed by a fixed delay and an unconditional
// reconnect. It returns only when ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context, handler func(json.RawMessage)) error {
	for {
		err := s.RunOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warn("ws session ended", zap.String("url", s.url), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

// RunOnce runs a single websocket session to completion.
func (s *Subscriber) RunOnce(ctx context.Context, handler func(json.RawMessage)) error {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()
	// Binance pushes continuously; the read limit only guards runaway frames.
	conn.SetReadLimit(1 << 20)
	s.log.Info("ws connected", zap.String("url", s.url))
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if handler != nil {
			handler(json.RawMessage(data))
		}
	}
}
