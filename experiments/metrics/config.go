package metrics

import "time"

// AgentConfig describes one searcher taking part in an experiment
type AgentConfig struct {
	ID          int           `yaml:"id"`
	Name        string        `yaml:"name"`
	Goroutines  int           `yaml:"goroutines"`
	Duration    time.Duration `yaml:"duration"`
	Iterations  int           `yaml:"iterations"`
	Cutoff      int           `yaml:"cutoff"`
	Selection   string        `yaml:"selection"`
	Playout     string        `yaml:"playout"`
	Backprop    string        `yaml:"backprop"`
	Final       string        `yaml:"final"`
	Solver      bool          `yaml:"solver"`
	ScoreBounds bool          `yaml:"score_bounds"`
	TreeReuse   bool          `yaml:"tree_reuse"`
	Cheating    bool          `yaml:"cheating"` // Store chance outcomes in the tree
	Decay       float64       `yaml:"decay"`
	Alpha       float64       `yaml:"alpha"`
	Exploration float64       `yaml:"exploration"`
	Seed        uint64        `yaml:"seed"`
}
