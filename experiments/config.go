package experiments

import (
	"os"

	"treesearch/experiments/metrics"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Experiment pairs agents over a number of games of one game type
type Experiment struct {
	Name     string                `yaml:"name"`
	Game     string                `yaml:"game"`   // tictactoe or pig
	Target   int                   `yaml:"target"` // Pig target score
	Games    int                   `yaml:"games"`  // Per match up
	Seconds  float64               `yaml:"seconds"`
	Agents   []metrics.AgentConfig `yaml:"agents"`
	MatchUps [][2]int              `yaml:"match_ups"` // Pairs of agent IDs
}

func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read experiment %s", path)
	}
	return ParseExperiment(data)
}

func ParseExperiment(data []byte) (*Experiment, error) {
	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, errors.Wrap(err, "failed to parse experiment")
	}
	if err := exp.validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (e *Experiment) validate() error {
	if e.Name == "" {
		return errors.New("experiment has no name")
	}
	if e.Game == "" {
		e.Game = "tictactoe"
	}
	if e.Game != "tictactoe" && e.Game != "pig" {
		return errors.Errorf("unknown game %q", e.Game)
	}
	if e.Games <= 0 {
		e.Games = 1
	}
	if len(e.Agents) == 0 {
		return errors.New("experiment has no agents")
	}
	if ids := lo.FindDuplicatesBy(e.Agents, func(c metrics.AgentConfig) int { return c.ID }); len(ids) > 0 {
		return errors.Errorf("agent id %d is used more than once", ids[0].ID)
	}
	known := lo.Associate(e.Agents, func(c metrics.AgentConfig) (int, bool) { return c.ID, true })
	for _, matchUp := range e.MatchUps {
		for _, id := range matchUp {
			if !known[id] {
				return errors.Errorf("match up refers to unknown agent %d", id)
			}
		}
	}
	return nil
}

func (e *Experiment) agent(id int) metrics.AgentConfig {
	config, _ := lo.Find(e.Agents, func(c metrics.AgentConfig) bool { return c.ID == id })
	return config
}
