package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(v float64)
}

type Metrics struct {
	TakersSubmitted Counter
	TakersFilled    Counter
	HedgesPlaced    Counter
	HedgesAbandoned Counter
	CancelsSent     Counter
	OrdersRejected  Counter
	SubmitFailed    Counter
	EngineState     Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		TakersSubmitted: n,
		TakersFilled:    n,
		HedgesPlaced:    n,
		HedgesAbandoned: n,
		CancelsSent:     n,
		OrdersRejected:  n,
		SubmitFailed:    n,
		EngineState:     noopGauge{},
	}
}
