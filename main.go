package main

import (
	"flag"
	"os"
	"time"

	"treesearch/experiments"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	config := flag.String("config", "", "experiment YAML file; runs a built-in experiment when empty")
	builtin := flag.String("experiment", "strategies", "built-in experiment: strategies or throughput")
	out := flag.String("out", "results", "directory for experiment records")
	verbose := flag.Bool("v", false, "log every search")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	exp, err := loadExperiment(*config, *builtin)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load experiment")
	}

	results, err := experiments.Run(exp, *out)
	if err != nil {
		log.Fatal().Err(err).Msg("experiment failed")
	}
	for id, wins := range results.Wins() {
		log.Info().Int("agent", id).Int("wins", wins).Msg("result")
	}
}

func loadExperiment(path, builtin string) (*experiments.Experiment, error) {
	if path != "" {
		return experiments.LoadExperiment(path)
	}
	if builtin == "throughput" {
		return experiments.Throughput(), nil
	}
	return experiments.Strategies(), nil
}
