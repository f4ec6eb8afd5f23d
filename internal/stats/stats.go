package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"
)

const (
	ActiveViewers    = "ActiveViewers"
	TotalViewers     = "TotalViewers"
	DropsCommitted   = "DropsCommitted"
	DropsDiscarded   = "DropsDiscarded"
	FailedMutations  = "FailedMutations"
	FeedbackMessages = "FeedbackMessages"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

type StatsUpdater struct {
	vars     *expvar.Map
	deltas   chan counterDelta
	done     chan struct{}
	stopOnce sync.Once
}

type counterDelta struct {
	name  string
	value int64
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a stats updater with the service metrics
// registered and serves them on GET /debug/vars.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		deltas: make(chan counterDelta, 512),
		done:   make(chan struct{}),
		vars:   new(expvar.Map).Init(),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	for _, name := range []string{
		ActiveViewers,
		TotalViewers,
		DropsCommitted,
		DropsDiscarded,
		FailedMutations,
		FeedbackMessages,
	} {
		su.RegisterMetric(name)
	}
}

func (su *StatsUpdater) updateMetrics() {
	for {
		select {
		case d := <-su.deltas:
			metric, ok := su.vars.Get(d.name).(*expvar.Int)
			if !ok {
				metric = new(expvar.Int)
				su.vars.Set(d.name, metric)
			}
			metric.Add(d.value)
		case <-su.done:
			return
		}
	}
}

// send drops the update once the updater is stopped.
func (su *StatsUpdater) send(d counterDelta) {
	select {
	case su.deltas <- d:
	case <-su.done:
	}
}

// Value returns the current value of a counter, or 0 if it is unknown.
func (su *StatsUpdater) Value(name string) int64 {
	if metric, ok := su.vars.Get(name).(*expvar.Int); ok {
		return metric.Value()
	}
	return 0
}

func (su *StatsUpdater) Incr(name string) {
	su.send(counterDelta{name: name, value: 1})
}

func (su *StatsUpdater) Decr(name string) {
	su.send(counterDelta{name: name, value: -1})
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

// Stop ends the update loop. Later updates are discarded.
func (su *StatsUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.done) })
}
