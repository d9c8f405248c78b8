package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "fm_arb_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(v float64) {
	p.gauge.Set(v)
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	takersSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "takers_submitted_total",
		Help:      "Total number of public taker orders submitted.",
	})
	takersFilled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "takers_filled_total",
		Help:      "Total number of public taker orders that traded.",
	})
	hedgesPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "hedges_placed_total",
		Help:      "Total number of private hedge orders submitted.",
	})
	hedgesAbandoned := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "hedges_abandoned_total",
		Help:      "Total number of hedge plans abandoned.",
	})
	cancelsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "cancels_sent_total",
		Help:      "Total number of cancellations sent for rested taker orders.",
	})
	ordersRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_rejected_total",
		Help:      "Total number of gateway rejections received.",
	})
	submitFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "submit_failed_total",
		Help:      "Total number of submissions that failed before reaching the gateway.",
	})

	engineState := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "engine_state",
		Help:      "Current hedge lifecycle state (0 idle, 1 public sent, 2 public standing, 3 awaiting hedge).",
	})

	registry.MustRegister(takersSubmitted, takersFilled, hedgesPlaced, hedgesAbandoned, cancelsSent, ordersRejected, submitFailed, engineState)

	m := &Metrics{
		TakersSubmitted: promCounter{takersSubmitted},
		TakersFilled:    promCounter{takersFilled},
		HedgesPlaced:    promCounter{hedgesPlaced},
		HedgesAbandoned: promCounter{hedgesAbandoned},
		CancelsSent:     promCounter{cancelsSent},
		OrdersRejected:  promCounter{ordersRejected},
		SubmitFailed:    promCounter{submitFailed},
		EngineState:     promGauge{engineState},
	}

	return &Prometheus{
		Metrics:  m,
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
