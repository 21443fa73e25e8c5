// Command zfinds recovers files from a copy-on-write pooled filesystem
// image or device, even when the pool itself cannot be imported.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zfinds/internal/blockdev"
	"zfinds/internal/device"
	"zfinds/internal/logging"
	"zfinds/internal/progress"
	"zfinds/internal/recovery"
	"zfinds/internal/zfswriter"
)

var (
	flagDestination string
	flagCache       bool
	flagLogLevel    string
	flagInteractive bool
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "zfinds",
		Short: "Recover files from a damaged copy-on-write pool",
	}

	recoverCmd := &cobra.Command{
		Use:       "recover [uber|brute|all] <disk>",
		Short:     "Run a recovery method against a pool device or image",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"uber", "brute", "all"},
		RunE:      runRecover,
	}
	recoverCmd.Flags().StringVarP(&flagDestination, "destination", "d", "./recovered", "output directory for recovered files")
	recoverCmd.Flags().BoolVar(&flagCache, "cache", true, "build the live-file cache before searching for lost files")
	recoverCmd.Flags().StringVarP(&flagLogLevel, "log-level", "v", "warn", "log level: debug, info, warn, error")
	recoverCmd.Flags().BoolVar(&flagInteractive, "interactive", false, "show a live progress view instead of log output")
	recoverCmd.Flags().Bool("no-cache", false, "skip the live-file cache (same as --cache=false)")
	recoverCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
			flagCache = false
		}
		return nil
	}

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List locally attached block devices and disk images",
		RunE:  runDevices,
	}

	root.AddCommand(recoverCmd, devicesCmd)
	return root
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := device.List()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: zfinds: list devices: %v\n", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), device.FormatTable(devices))
	return nil
}

func runRecover(cmd *cobra.Command, args []string) error {
	method, disk := args[0], args[1]
	switch method {
	case "uber", "brute", "all":
	default:
		return fmt.Errorf("zfinds: unknown method %q, want one of uber, brute, all", method)
	}

	log, err := logging.New(flagLogLevel)
	if err != nil {
		return fmt.Errorf("zfinds: %w", err)
	}

	reader, err := blockdev.Open(disk)
	if err != nil {
		return fmt.Errorf("zfinds: %w", err)
	}
	defer reader.Close()

	writer, err := zfswriter.New(flagDestination)
	if err != nil {
		return fmt.Errorf("zfinds: %w", err)
	}

	orch := recovery.New(reader, writer, log)

	if flagInteractive {
		return runInteractive(orch, method)
	}
	return runHeadless(orch, method, log)
}

func runHeadless(orch *recovery.Orchestrator, method string, log *logrus.Logger) error {
	if flagCache {
		log.Info("building live-file cache")
		if err := orch.BuildCache(); err != nil {
			return fmt.Errorf("zfinds: %w", err)
		}
	}

	if method == "uber" || method == "all" {
		log.Info("searching historical superblocks")
		if err := orch.FindUber(); err != nil {
			return fmt.Errorf("zfinds: %w", err)
		}
		if err := orch.WriteUber(); err != nil {
			return fmt.Errorf("zfinds: %w", err)
		}
		log.Info(fmt.Sprintf("recovered %d files via uber", orch.UberCount()))
	}

	if method == "brute" || method == "all" {
		log.Info("scanning unallocated sectors")
		if err := orch.FindBrute(); err != nil {
			return fmt.Errorf("zfinds: %w", err)
		}
		if err := orch.WriteBrute(); err != nil {
			return fmt.Errorf("zfinds: %w", err)
		}
		log.Info(fmt.Sprintf("recovered %d files via brute", orch.BruteCount()))
	}

	return nil
}

// runInteractive runs the orchestrator on its own goroutine, streaming
// phase events to a bubbletea progress view running on the main
// goroutine. The error channel has capacity 1 so the recovery goroutine
// never blocks sending its final result if the TUI has already quit.
func runInteractive(orch *recovery.Orchestrator, method string) error {
	events := make(chan progress.Event)
	errc := make(chan error, 1)

	go func() {
		defer close(events)

		if flagCache {
			events <- progress.Event{Phase: progress.PhaseCache}
			if err := orch.BuildCache(); err != nil {
				errc <- err
				return
			}
		}

		if method == "uber" || method == "all" {
			events <- progress.Event{Phase: progress.PhaseUber, UberCount: orch.UberCount()}
			if err := orch.FindUber(); err != nil {
				errc <- err
				return
			}
			events <- progress.Event{Phase: progress.PhaseUber, UberCount: orch.UberCount()}
			if err := orch.WriteUber(); err != nil {
				errc <- err
				return
			}
		}

		if method == "brute" || method == "all" {
			events <- progress.Event{Phase: progress.PhaseBrute, UberCount: orch.UberCount(), BruteCount: orch.BruteCount()}
			if err := orch.FindBrute(); err != nil {
				errc <- err
				return
			}
			events <- progress.Event{Phase: progress.PhaseBrute, UberCount: orch.UberCount(), BruteCount: orch.BruteCount()}
			if err := orch.WriteBrute(); err != nil {
				errc <- err
				return
			}
		}

		events <- progress.Event{Phase: progress.PhaseDone, UberCount: orch.UberCount(), BruteCount: orch.BruteCount()}
		errc <- nil
	}()

	if err := progress.Run(events); err != nil {
		return fmt.Errorf("zfinds: progress view: %w", err)
	}

	if err := <-errc; err != nil {
		return fmt.Errorf("zfinds: %w", err)
	}
	return nil
}
