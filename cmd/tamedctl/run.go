package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	runConfigPath string
	runFormat     string
)

var runCmd = &cobra.Command{
	Use:   "run [scenario]",
	Short: "Run a named concurrency scenario and report its outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  executeRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a scenario TOML config file")
	runCmd.Flags().StringVar(&runFormat, "format", "text", "output format: text|msgpack")
}

func executeRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	fn, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (known: %v)", name, scenarioNames())
	}

	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	settings := cfg.settingsFor(name)

	report := fn(cmd.Context(), settings)

	switch runFormat {
	case "msgpack":
		data, err := msgpack.Marshal(report)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	default:
		printReport(report)
		return nil
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	okColor    = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed)
)

func printReport(rep ScenarioReport) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("scenario: %s", rep.Scenario)))
	fmt.Printf("elapsed: %s\n", rep.Elapsed)
	for _, task := range rep.Tasks {
		if task.Error == "" {
			okColor.Printf("  %-20s ok (duration=%s)\n", task.Name, task.Duration)
			continue
		}
		status := "error"
		if task.Cancelled {
			status = "cancelled"
		}
		errColor.Printf("  %-20s %s: %s\n", task.Name, status, task.Error)
	}
	if rep.Error != "" {
		errColor.Printf("scope result: %s\n", rep.Error)
	} else {
		okColor.Println("scope result: ok")
	}
}
