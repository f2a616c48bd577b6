// Command verify exercises the exchange connectivity a running bot needs:
// a public depth fetch, then the signed user-data-stream endpoints. It
// places no orders.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"bn-ladder-bot/internal/bn/rest"
	"bn-ladder-bot/internal/config"
	"bn-ladder-bot/internal/logging"

	"go.uber.org/zap"
)

const verifyTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "optional config path")
	dryRun := flag.Bool("dry-run", false, "print the resolved endpoints and exit without calling the venue")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fatal(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	if *dryRun {
		out, _ := json.MarshalIndent(map[string]string{
			"symbol":          cfg.Strategy.Symbol,
			"spot_rest":       cfg.Spot.RESTBaseURL,
			"spot_ws":         cfg.Spot.WSBaseURL,
			"futures_rest":    cfg.Futures.RESTBaseURL,
			"futures_ws":      cfg.Futures.WSBaseURL,
			"http_bind":       cfg.HTTP.Bind,
			"reconnect_delay": cfg.Strategy.ReconnectDelay.String(),
			"keepalive":       cfg.Strategy.KeepAliveInterval.String(),
		}, "", "  ")
		fmt.Println(string(out))
		return
	}

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		fatal(err)
	}
	client := rest.New(rest.Config{
		SpotBaseURL:    cfg.Spot.RESTBaseURL,
		FuturesBaseURL: cfg.Futures.RESTBaseURL,
		APIKey:         creds.APIKey,
		APISecret:      creds.APISecret,
		Timeout:        cfg.Spot.Timeout,
	}, log)

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	book, err := client.Depth(ctx, cfg.Strategy.Symbol)
	if err != nil {
		fatal(fmt.Errorf("depth fetch: %w", err))
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		fatal(fmt.Errorf("depth fetch returned an empty book for %s", cfg.Strategy.Symbol))
	}
	log.Info("depth ok",
		zap.String("symbol", cfg.Strategy.Symbol),
		zap.Float64("best_bid", book.Bids[0].Price),
		zap.Float64("best_ask", book.Asks[0].Price))

	listenKey, err := client.CreateListenKey(ctx)
	if err != nil {
		fatal(fmt.Errorf("listen key create: %w", err))
	}
	if err := client.KeepAliveListenKey(ctx, listenKey); err != nil {
		fatal(fmt.Errorf("listen key keepalive: %w", err))
	}
	log.Info("user data stream ok")

	fmt.Println("verify: all checks passed")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "verify: %v\n", err)
	os.Exit(1)
}
