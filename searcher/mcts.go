package searcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"treesearch/experiments/metrics"
	"treesearch/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Option func(mcts *MCTS)

// Report summarizes the latest search
type Report struct {
	Move          game.Move
	Visits        int     // Visits of the chosen move
	ExpectedScore float64 // Mean utility of the chosen move for the player to act
	Iterations    int
	Duration      time.Duration
	RootVisits    int
	RootProven    bool
	TreeReused    bool
	Interrupted   bool
	Kind          Kind
}

type MCTS struct {
	name        string
	goroutines  int
	duration    time.Duration
	iterations  int
	cutoff      int
	evaluate    game.Evaluate
	batch       game.BatchEvaluate
	selection   Selection
	playout     Playout
	backprop    Backpropagation
	final       FinalMoveSelection
	solver      bool
	scoreBounds bool
	reuse       bool
	openLoop    bool
	cheating    bool
	decay       float64
	autoPlay    time.Duration
	grace       time.Duration
	seed        uint64
	metrics     metrics.Collector

	mu        sync.Mutex // Serializes searches
	player    int
	actions   *ActionTable
	root      *Node
	rootPly   int // Number of real moves played before the root position
	searches  uint64
	interrupt atomic.Bool
	cancelMu  sync.Mutex
	cancel    context.CancelFunc
	report    Report
}

func WithName(name string) Option {
	return func(m *MCTS) {
		if name != "" {
			m.name = name
		}
	}
}

func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

func WithIterations(iterations int) Option {
	return func(m *MCTS) {
		if iterations > 0 {
			m.iterations = iterations
		}
	}
}

func WithCutoff(depth int) Option {
	return func(m *MCTS) {
		if depth >= 0 {
			m.cutoff = depth
		}
	}
}

func WithEvaluationFn(evaluate game.Evaluate) Option {
	return func(m *MCTS) {
		if evaluate != nil {
			m.evaluate = evaluate
		}
	}
}

func WithBatchEvaluationFn(batch game.BatchEvaluate) Option {
	return func(m *MCTS) {
		if batch != nil {
			m.batch = batch
		}
	}
}

func WithSelection(selection Selection) Option {
	return func(m *MCTS) {
		if selection != nil {
			m.selection = selection
		}
	}
}

func WithPlayout(playout Playout) Option {
	return func(m *MCTS) {
		if playout != nil {
			m.playout = playout
		}
	}
}

// WithoutPlayout backs up the reached position directly
func WithoutPlayout() Option {
	return func(m *MCTS) {
		m.playout = nil
	}
}

func WithBackpropagation(backprop Backpropagation) Option {
	return func(m *MCTS) {
		if backprop != nil {
			m.backprop = backprop
		}
	}
}

func WithFinalMoveSelection(final FinalMoveSelection) Option {
	return func(m *MCTS) {
		if final != nil {
			m.final = final
		}
	}
}

func WithSolver() Option {
	return func(m *MCTS) {
		m.solver = true
	}
}

func WithScoreBounds() Option {
	return func(m *MCTS) {
		m.scoreBounds = true
	}
}

func WithTreeReuse() Option {
	return func(m *MCTS) {
		m.reuse = true
	}
}

// WithOpenLoop builds open-loop trees for every game
func WithOpenLoop() Option {
	return func(m *MCTS) {
		m.openLoop = true
	}
}

// WithCheating lets the searcher store positions of stochastic games in the
// tree as if chance outcomes were known in advance
func WithCheating() Option {
	return func(m *MCTS) {
		m.cheating = true
	}
}

// WithDecay multiplies the action statistics by factor before every search
func WithDecay(factor float64) Option {
	return func(m *MCTS) {
		if factor > 0 && factor <= 1 {
			m.decay = factor
		}
	}
}

func WithAutoPlay(budget time.Duration) Option {
	return func(m *MCTS) {
		if budget > 0 {
			m.autoPlay = budget
		}
	}
}

func WithGracePeriod(grace time.Duration) Option {
	return func(m *MCTS) {
		if grace >= 0 {
			m.grace = grace
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.seed = seed
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func WithCollector(collector metrics.Collector) Option {
	return func(m *MCTS) {
		if collector != nil {
			m.metrics = collector
		}
	}
}

func NewMCTS(goroutines int, options ...Option) *MCTS {
	m := &MCTS{ // Default values
		name:       "mcts",
		goroutines: goroutines,
		iterations: NoLimit,
		cutoff:     MaxCutoff,
		selection:  NewUCB1(),
		playout:    RandomPlayout{},
		backprop:   MonteCarlo{},
		final:      RobustChild{},
		decay:      1,
		autoPlay:   DefaultAutoPlay,
		grace:      DefaultGracePeriod,
		seed:       uint64(time.Now().UnixNano()),
		metrics:    metrics.NewDummyCollector(),
		actions:    NewActionTable(),
	}
	for _, option := range options {
		option(m)
	}
	if m.goroutines < 1 {
		panic("Must search with at least one goroutine")
	}
	if m.solver && m.scoreBounds {
		panic("Solver and score bounds nodes are mutually exclusive")
	}
	if usesEstimates(m.selection) && m.scoreBounds {
		panic("Implicit minimax selection cannot use score bounds nodes")
	}
	if usesEstimates(m.selection) && m.openLoop {
		panic("Implicit minimax selection requires positions stored in the tree")
	}
	return m
}

func (m *MCTS) Name() string {
	return m.name
}

func (m *MCTS) SetNumThreads(n int) {
	if n < 1 {
		panic("Must search with at least one goroutine")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.goroutines = n
}

// Actions returns the engine-wide action statistics
func (m *MCTS) Actions() *ActionTable {
	return m.actions
}

func (m *MCTS) Evaluate() game.Evaluate {
	return m.evaluate
}

// Root returns the tree retained for the next search, nil if there is none
func (m *MCTS) Root() *Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.root
}

func (m *MCTS) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.report
}

func (m *MCTS) Metric() metrics.SearchMetric {
	return m.metrics.Last()
}

// InitAI prepares a new game for player, dropping the tree and statistics of the
// previous one, and checks that the strategies support the game.
func (m *MCTS) InitAI(state game.State, player int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.player = player
	m.root = nil
	m.rootPly = 0
	m.actions.Reset()
	return m.validate(state)
}

func (m *MCTS) validate(state game.State) error {
	for _, strategy := range []any{m.selection, m.playout, m.backprop, m.final} {
		if v, ok := strategy.(Validator); ok {
			if err := v.Validate(m, state); err != nil {
				return errors.Wrapf(err, "%s cannot play this game", m.name)
			}
		}
	}
	if usesEstimates(m.selection) && m.nodeKind(state) == OpenLoop {
		return errors.Errorf("%s: implicit minimax selection cannot search a stochastic game without cheating", m.name)
	}
	return nil
}

// Interrupt stops the running search, which returns its best move so far
// without advancing the retained tree. The statistics gathered before the
// interruption stay in the tree, so the next search continues from them.
func (m *MCTS) Interrupt() {
	m.interrupt.Store(true)

	m.cancelMu.Lock()
	defer m.cancelMu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *MCTS) setCancel(cancel context.CancelFunc) {
	m.cancelMu.Lock()
	defer m.cancelMu.Unlock()

	m.cancel = cancel
}

// nodeKind resolves the node variant of a search
func (m *MCTS) nodeKind(state game.State) Kind {
	switch {
	case m.openLoop || (game.IsStochastic(state) && !m.cheating):
		return OpenLoop
	case usesEstimates(m.selection) && m.solver:
		return ImplicitSolver
	case usesEstimates(m.selection):
		return Implicit
	case m.scoreBounds:
		return ScoreBounded
	case m.solver:
		return SolverStandard
	default:
		return Standard
	}
}

func (m *MCTS) flags() Flags {
	flags := m.selection.Flags() | m.backprop.Flags()
	if m.playout != nil {
		flags |= m.playout.Flags()
	}
	return flags
}

// SelectAction searches state and returns the move to play. A non-positive
// maxSeconds, a negative maxIterations or a negative maxDepth falls back to the
// configured duration, iterations or cutoff.
func (m *MCTS) SelectAction(state game.State, maxSeconds float64, maxIterations, maxDepth int) game.Move {
	return m.SelectActionContext(context.Background(), state, maxSeconds, maxIterations, maxDepth)
}

// SelectActionContext is SelectAction with cancellation: a cancelled context
// interrupts the search.
func (m *MCTS) SelectActionContext(ctx context.Context, state game.State, maxSeconds float64, maxIterations, maxDepth int) game.Move {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(state.LegalMoves()) == 0 {
		panic("Cannot select an action without legal moves")
	}
	if err := m.validate(state); err != nil {
		panic(err.Error())
	}

	duration := m.duration
	if maxSeconds > 0 {
		duration = time.Duration(maxSeconds * float64(time.Second))
	}
	iterations := m.iterations
	if maxIterations >= 0 {
		iterations = maxIterations
	}
	depth := m.cutoff
	if maxDepth >= 0 {
		depth = maxDepth
	}
	if duration <= 0 && iterations < 0 {
		panic("Must specify search iterations or duration")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.setCancel(cancel)
	defer m.setCancel(nil)
	m.interrupt.Store(false)

	s := &search{
		m:     m,
		ctx:   ctx,
		state: state,
		kind:  m.nodeKind(state),
		flags: m.flags(),
		cap:   int64(iterations),
		depth: depth,
	}
	if iterations < 0 {
		s.cap = NoLimit
	}

	// Decay statistics, then find and refresh the root
	m.actions.Decay(m.decay)
	root, reused := m.findRoot(s)
	if m.decay < 1 && s.flags.has(AMAFStats) {
		root.decayAMAF(m.decay)
	}
	s.root = root
	s.refreshRoot(root, state)
	if root.NumMoves() == 1 && (duration <= 0 || duration > m.autoPlay) {
		duration = m.autoPlay
	}
	start := time.Now()
	if duration > 0 {
		s.deadline = start.Add(duration)
	}

	m.metrics.Start(m.goroutines, depth)
	m.metrics.SetTreeReset(!reused)
	m.run(s)
	interrupted := s.interrupted()

	// Select the final move from the joined (or abandoned) workers' statistics
	root.Lock()
	move := m.final.SelectMove(s.newWorker(-1, m.seed^m.searches), root)
	chosen := root.childByID(move.ID())
	root.Unlock()

	report := Report{
		Move:        move,
		Iterations:  int(s.completed.Load()),
		Duration:    time.Since(start),
		RootVisits:  root.Visits(),
		RootProven:  root.Proven(),
		TreeReused:  reused,
		Interrupted: interrupted,
		Kind:        s.kind,
	}
	if chosen != nil {
		report.Visits = chosen.Visits()
		report.ExpectedScore = chosen.MeanScore(root.player)
	}
	m.report = report
	m.metrics.Complete(metrics.Result{
		BestVisits:  report.Visits,
		BestScore:   report.ExpectedScore,
		RootVisits:  report.RootVisits,
		RootProven:  report.RootProven,
		Interrupted: interrupted,
	})

	log.Debug().
		Str("engine", m.name).
		Str("kind", s.kind.String()).
		Int("iterations", report.Iterations).
		Int("visits", report.Visits).
		Float64("score", report.ExpectedScore).
		Bool("reused", reused).
		Bool("interrupted", interrupted).
		Msg("search completed")

	if !interrupted {
		m.advance(state, chosen)
	}
	return move
}

// run executes the search on the worker pool and waits for the workers until
// the deadline plus the grace period
func (m *MCTS) run(s *search) {
	m.searches++
	var g errgroup.Group
	for i := 0; i < m.goroutines; i++ {
		w := s.newWorker(i, m.seed+m.searches*uint64(m.goroutines)+uint64(i))
		s.busy.Add(1)
		g.Go(w.run)
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	var timeout <-chan time.Time
	if !s.deadline.IsZero() {
		timeout = time.After(time.Until(s.deadline) + m.grace)
	}
	select {
	case err := <-done:
		if err != nil {
			log.Warn().Err(err).Str("engine", m.name).Msg("search finished without some workers")
		}
	case <-s.ctx.Done():
		select {
		case <-done:
		case <-time.After(m.grace):
			m.abandon(s)
		}
	case <-timeout:
		m.abandon(s)
	}
	s.halt.Store(true)
}

func (m *MCTS) abandon(s *search) {
	log.Warn().Msgf("%d search workers of %s still busy after the grace period", s.busy.Load(), m.name)
}
