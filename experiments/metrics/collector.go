package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Goroutines       int
	Duration         time.Duration
	Iterations       int
	Cutoff           int
	FullPlayouts     int
	ProvenIterations int
	IsTreeReset      bool
	RootVisits       int
	RootProven       bool
	BestVisits       int
	BestScore        float64
	Interrupted      bool
}

type MoveMetric struct {
	Step   int
	Player int // Player ID
	SearchMetric
}

type GameMetric struct {
	StartingPlayer int // Player ID
	Winner         int // Player ID, 0 for a draw
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

// Result is the outcome of a search handed to the collector when it completes
type Result struct {
	BestVisits  int
	BestScore   float64
	RootVisits  int
	RootProven  bool
	Interrupted bool
}

type Collector interface {
	Start(goroutines, cutoff int)
	SetTreeReset(value bool)
	AddFullPlayout()
	AddIteration()
	AddProven()
	Complete(result Result) SearchMetric
	// Last returns the metric of the latest completed search
	Last() SearchMetric
}

type collector struct {
	goroutines   int
	cutoff       int
	startTime    time.Time
	iterations   atomic.Int32
	fullPlayouts atomic.Int32
	proven       atomic.Int32
	isTreeReset  atomic.Bool

	mu   sync.Mutex
	last SearchMetric
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReset(value bool) {
	m.isTreeReset.Store(value)
}

func (m *collector) Start(goroutines, cutoff int) {
	m.startTime = time.Now()
	m.goroutines = goroutines
	m.cutoff = cutoff
	m.iterations.Store(0)
	m.fullPlayouts.Store(0)
	m.proven.Store(0)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddIteration() {
	m.iterations.Add(1)
}

func (m *collector) AddProven() {
	m.proven.Add(1)
}

func (m *collector) Complete(result Result) SearchMetric {
	metric := SearchMetric{
		Goroutines:       m.goroutines,
		Duration:         time.Since(m.startTime),
		Iterations:       int(m.iterations.Load()),
		FullPlayouts:     int(m.fullPlayouts.Load()),
		ProvenIterations: int(m.proven.Load()),
		Cutoff:           m.cutoff,
		IsTreeReset:      m.isTreeReset.Load(),
		RootVisits:       result.RootVisits,
		RootProven:       result.RootProven,
		BestVisits:       result.BestVisits,
		BestScore:        result.BestScore,
		Interrupted:      result.Interrupted,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = metric
	return metric
}

func (m *collector) Last() SearchMetric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.last
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(goroutines, cutoff int)        {}
func (m *dummyCollector) SetTreeReset(value bool)             {}
func (m *dummyCollector) AddFullPlayout()                     {}
func (m *dummyCollector) AddIteration()                       {}
func (m *dummyCollector) AddProven()                          {}
func (m *dummyCollector) Complete(result Result) SearchMetric { return SearchMetric{} }
func (m *dummyCollector) Last() SearchMetric                  { return SearchMetric{} }
