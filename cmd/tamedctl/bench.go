package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	benchIterations int
	benchConfigPath string
)

var benchCmd = &cobra.Command{
	Use:   "bench [scenario]",
	Short: "Run a scenario repeatedly and report elapsed-time percentiles",
	Args:  cobra.ExactArgs(1),
	RunE:  executeBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 20, "number of times to run the scenario")
	benchCmd.Flags().StringVar(&benchConfigPath, "config", "", "path to a scenario TOML config file")
	rootCmd.AddCommand(benchCmd)
}

// benchReport summarizes iterations of a scenario run without carrying
// per-task detail, since bench cares about timing distribution rather than
// any single run's outcome.
type benchReport struct {
	Scenario   string
	Iterations int
	Failures   int
	P50        time.Duration
	P90        time.Duration
	Max        time.Duration
}

func executeBench(cmd *cobra.Command, args []string) error {
	name := args[0]
	fn, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (known: %v)", name, scenarioNames())
	}
	if benchIterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", benchIterations)
	}

	cfg, err := loadConfig(benchConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	settings := cfg.settingsFor(name)

	rep := runBench(cmd.Context(), name, fn, settings, benchIterations)
	printBenchReport(rep)
	return nil
}

func runBench(ctx context.Context, name string, fn scenarioFunc, settings ScenarioSettings, iterations int) benchReport {
	durations := make([]time.Duration, 0, iterations)
	failures := 0
	for i := 0; i < iterations; i++ {
		scenario := fn(ctx, settings)
		durations = append(durations, scenario.Elapsed)
		if scenario.Error != "" {
			failures++
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	rep := benchReport{Scenario: name, Iterations: iterations, Failures: failures}
	if len(durations) == 0 {
		return rep
	}
	rep.P50 = percentile(durations, 0.50)
	rep.P90 = percentile(durations, 0.90)
	rep.Max = durations[len(durations)-1]
	return rep
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func printBenchReport(rep benchReport) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("bench: %s (%d iterations)", rep.Scenario, rep.Iterations)))
	row := lipgloss.NewStyle().PaddingLeft(2)
	fmt.Println(row.Render(fmt.Sprintf("p50: %s", rep.P50)))
	fmt.Println(row.Render(fmt.Sprintf("p90: %s", rep.P90)))
	fmt.Println(row.Render(fmt.Sprintf("max: %s", rep.Max)))
	if rep.Failures > 0 {
		errColor.Printf("  failures: %d/%d\n", rep.Failures, rep.Iterations)
	} else {
		okColor.Println("  failures: 0")
	}
}
