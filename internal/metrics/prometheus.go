package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "bn_ladder_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
	}
	ordersPlaced := counter("orders_placed_total", "Total number of spot limit orders placed.")
	ordersCancelled := counter("orders_cancelled_total", "Total number of spot orders cancelled.")
	ordersFailed := counter("orders_failed_total", "Total number of failed exchange mutations.")
	shortsOpened := counter("shorts_opened_total", "Total number of futures shorts opened.")
	shortsClosed := counter("shorts_closed_total", "Total number of futures shorts closed.")
	buyFills := counter("buy_fills_total", "Total number of BUY execution reports applied.")
	sellFills := counter("sell_fills_total", "Total number of SELL execution reports applied.")
	framesDropped := counter("frames_dropped_total", "Total number of malformed or gated-out feed frames.")
	reconcileRuns := counter("reconcile_runs_total", "Total number of buy reconciliation passes.")

	registry.MustRegister(ordersPlaced, ordersCancelled, ordersFailed,
		shortsOpened, shortsClosed, buyFills, sellFills, framesDropped, reconcileRuns)

	return &Prometheus{
		Metrics: &Metrics{
			OrdersPlaced:    promCounter{ordersPlaced},
			OrdersCancelled: promCounter{ordersCancelled},
			OrdersFailed:    promCounter{ordersFailed},
			ShortsOpened:    promCounter{shortsOpened},
			ShortsClosed:    promCounter{shortsClosed},
			BuyFills:        promCounter{buyFills},
			SellFills:       promCounter{sellFills},
			FramesDropped:   promCounter{framesDropped},
			ReconcileRuns:   promCounter{reconcileRuns},
		},
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
