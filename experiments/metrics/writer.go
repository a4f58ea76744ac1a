package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID
	Agent2 int // AgentConfig.ID
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

type Writer struct {
	baseDir string
}

// NewWriter creates a folder for the experiment under root, named by the
// experiment and the current timestamp
func NewWriter(root, name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(root, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create directory")
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) write(file string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, file)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", file)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	err = writer.Write(header)
	if err != nil {
		return errors.Wrapf(err, "failed to write %s header", file)
	}
	for _, row := range rows {
		err = writer.Write(row)
		if err != nil {
			return errors.Wrapf(err, "failed to write %s row", file)
		}
	}
	writer.Flush()
	return errors.Wrapf(writer.Error(), "failed to flush %s", file)
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "name", "goroutines", "duration", "iterations", "cutoff", "selection", "playout", "backprop", "final", "solver", "score_bounds", "tree_reuse", "decay"}
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			config.Name,
			strconv.Itoa(config.Goroutines),
			config.Duration.String(),
			strconv.Itoa(config.Iterations),
			strconv.Itoa(config.Cutoff),
			config.Selection,
			config.Playout,
			config.Backprop,
			config.Final,
			strconv.FormatBool(config.Solver),
			strconv.FormatBool(config.ScoreBounds),
			strconv.FormatBool(config.TreeReuse),
			strconv.FormatFloat(config.Decay, 'f', -1, 64),
		})
	}
	return w.write("agent_configs.csv", header, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "agent1", "agent2", "starting_player", "winner", "start_time", "end_time", "duration", "total_moves"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			strconv.Itoa(record.StartingPlayer),
			strconv.Itoa(record.Winner),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.TotalMoves),
		})
	}
	return w.write("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "duration", "iterations", "full_playouts", "proven_iterations", "is_tree_reset", "root_proven", "best_visits", "best_score", "interrupted"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Player),
			record.Duration.String(),
			strconv.Itoa(record.Iterations),
			strconv.Itoa(record.FullPlayouts),
			strconv.Itoa(record.ProvenIterations),
			strconv.FormatBool(record.IsTreeReset),
			strconv.FormatBool(record.RootProven),
			strconv.Itoa(record.BestVisits),
			strconv.FormatFloat(record.BestScore, 'f', 4, 64),
			strconv.FormatBool(record.Interrupted),
		})
	}
	return w.write("move_records.csv", header, rows)
}
