package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sarchlab/arqsim/datarecording"
	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/scenario"
	"github.com/sarchlab/arqsim/sim"
	"github.com/sarchlab/arqsim/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario.",
	Long: "`run` loads a scenario, applies the overrides from .env and the " +
		"flags, runs it and prints a summary of the events.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadScenario(cmd, args[0])
		if err != nil {
			return err
		}

		b, err := simulationBuilder(cmd)
		if err != nil {
			return err
		}

		simu, err := scenario.Build(s, b)
		if err != nil {
			return err
		}
		defer simu.Terminate()

		summary, err := scenario.Run(s, simu)
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), simu.Now(), summary)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64("seed", 0, "Override the seed of the scenario")
	runCmd.Flags().Uint64("ticks", 0, "Override the number of ticks to run")
	runCmd.Flags().String("env", ".env", "The file to read overrides from")
	runCmd.Flags().String("db", "",
		"Record the events into this SQLite file (without extension)")
	runCmd.Flags().Bool("record", false,
		"Record the events into a SQLite file with a generated name")
	runCmd.Flags().String("clickhouse", "",
		"Record the events into the ClickHouse server at this address")
	runCmd.Flags().String("clickhouse-db", "default",
		"The ClickHouse database to record into")
	runCmd.Flags().String("clickhouse-user", "default", "The ClickHouse user")
	runCmd.Flags().String("clickhouse-password", "",
		"The password of the ClickHouse user")
	runCmd.Flags().Bool("monitor", false, "Serve the monitoring API")
	runCmd.Flags().Int("monitor-port", 0, "The port of the monitoring API")
	runCmd.Flags().Bool("open-browser", false,
		"Open the monitoring API in a browser")
	runCmd.Flags().BoolP("verbose", "v", false, "Print every event")
	runCmd.Flags().Bool("parallel-ids", false,
		"Use globally unique packet IDs instead of sequential ones")
}

func loadScenario(cmd *cobra.Command, path string) (*scenario.Scenario, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}

	envFile, _ := cmd.Flags().GetString("env")

	env, err := scenario.LoadEnv(envFile)
	if err != nil {
		return nil, err
	}

	err = s.ApplyEnv(env)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("seed") {
		s.Seed, _ = cmd.Flags().GetUint64("seed")
	}

	if cmd.Flags().Changed("ticks") {
		s.Ticks, _ = cmd.Flags().GetUint64("ticks")
	}

	return s, nil
}

func simulationBuilder(cmd *cobra.Command) (simulation.Builder, error) {
	b := simulation.MakeBuilder()

	monitor, _ := cmd.Flags().GetBool("monitor")
	port, _ := cmd.Flags().GetInt("monitor-port")
	openBrowser, _ := cmd.Flags().GetBool("open-browser")

	if !monitor && (port != 0 || openBrowser) {
		return b, errors.New(
			"--monitor-port and --open-browser require --monitor")
	}

	db, _ := cmd.Flags().GetString("db")
	record, _ := cmd.Flags().GetBool("record")
	chAddr, _ := cmd.Flags().GetString("clickhouse")

	if chAddr != "" && (db != "" || record) {
		return b, errors.New("--clickhouse cannot be used with --db or --record")
	}

	if parallel, _ := cmd.Flags().GetBool("parallel-ids"); parallel {
		sim.UseParallelIDGenerator()
	}

	switch {
	case chAddr != "":
		b = b.WithDataRecorder(clickHouseRecorder(cmd, chAddr))
	case db != "":
		b = b.WithRecording().WithOutputFileName(db)
	case record:
		b = b.WithRecording()
	}

	if monitor {
		b = b.WithMonitoring().WithMonitorPort(port)
		if openBrowser {
			b = b.WithOpenBrowser()
		}
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		b = b.WithLogger(log.New(os.Stderr, "", 0))
	}

	return b, nil
}

func clickHouseRecorder(
	cmd *cobra.Command,
	addr string,
) datarecording.DataRecorder {
	database, _ := cmd.Flags().GetString("clickhouse-db")
	user, _ := cmd.Flags().GetString("clickhouse-user")
	password, _ := cmd.Flags().GetString("clickhouse-password")

	return datarecording.NewClickHouseRecorder(datarecording.ClickHouseOptions{
		Addr:     addr,
		Database: database,
		Username: user,
		Password: password,
	})
}

func printSummary(w io.Writer, end sim.VTick, s eventlog.Summary) {
	fmt.Fprintf(w, "Ticks:           %d\n", end)
	fmt.Fprintf(w, "Sent:            %d\n", s.Sent)
	fmt.Fprintf(w, "Retransmissions: %d\n", s.Retransmissions)
	fmt.Fprintf(w, "Dropped:         %d\n", s.Dropped)
	fmt.Fprintf(w, "Rejected:        %d\n", s.Rejected)

	reasons := make([]eventlog.Reason, 0, len(s.ByReason))
	for r := range s.ByReason {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	for _, r := range reasons {
		fmt.Fprintf(w, "  %-16s %d\n", r.String()+":", s.ByReason[r])
	}
}
