package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriter(t *testing.T) {
	root := t.TempDir()
	writer, err := NewWriter(root, "smoke")
	require.NoError(t, err)
	require.DirExists(t, writer.Dir())
	require.Equal(t, filepath.Join(root, "smoke"), filepath.Dir(writer.Dir()))

	t.Run("agent configs", func(t *testing.T) {
		configs := []AgentConfig{{ID: 1, Name: "ucb1", Goroutines: 4, Duration: 50 * time.Millisecond, Solver: true}}
		require.NoError(t, writer.WriteAgentConfigs(configs))

		rows := readCSV(t, filepath.Join(writer.Dir(), "agent_configs.csv"))
		require.Len(t, rows, 2)
		require.Equal(t, "id", rows[0][0])
		require.Equal(t, []string{"1", "ucb1", "4", "50ms"}, rows[1][:4])
		require.Equal(t, "true", rows[1][10])
	})

	t.Run("game records", func(t *testing.T) {
		records := []GameRecord{{ID: 1, Agent1: 1, Agent2: 2, GameMetric: GameMetric{StartingPlayer: 1, Winner: 2, TotalMoves: 9}}}
		require.NoError(t, writer.WriteGameRecords(records))

		rows := readCSV(t, filepath.Join(writer.Dir(), "game_records.csv"))
		require.Len(t, rows, 2)
		require.Equal(t, []string{"1", "1", "2", "1", "2"}, rows[1][:5])
		require.Equal(t, "9", rows[1][8])
	})

	t.Run("move records", func(t *testing.T) {
		records := []MoveRecord{{Game: 1, MoveMetric: MoveMetric{Step: 3, Player: 1, SearchMetric: SearchMetric{Iterations: 100, BestScore: 0.5}}}}
		require.NoError(t, writer.WriteMoveRecords(records))

		rows := readCSV(t, filepath.Join(writer.Dir(), "move_records.csv"))
		require.Len(t, rows, 2)
		require.Equal(t, []string{"1", "3", "1"}, rows[1][:3])
		require.Equal(t, "100", rows[1][4])
		require.Equal(t, "0.5000", rows[1][10])
	})
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Start(4, 10)
	c.SetTreeReset(true)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				c.AddIteration()
				if i%2 == 0 {
					c.AddFullPlayout()
				}
			}
		}()
	}
	wg.Wait()
	c.AddProven()

	metric := c.Complete(Result{BestVisits: 40, RootVisits: 1000, RootProven: true})
	require.Equal(t, 4, metric.Goroutines)
	require.Equal(t, 10, metric.Cutoff)
	require.Equal(t, 1000, metric.Iterations)
	require.Equal(t, 500, metric.FullPlayouts)
	require.Equal(t, 1, metric.ProvenIterations)
	require.True(t, metric.IsTreeReset)
	require.True(t, metric.RootProven)
	require.Equal(t, metric, c.Last())

	c.Start(1, -1)
	require.Zero(t, c.Complete(Result{}).Iterations, "Start should reset the counters")

	require.Equal(t, SearchMetric{}, NewDummyCollector().Complete(Result{RootVisits: 1}))
}
