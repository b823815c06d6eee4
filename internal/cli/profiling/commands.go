package profiling

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addServerFlag registers the shared --server flag on a command's flag set.
func addServerFlag(fs *pflag.FlagSet, target *string) {
	fs.StringVar(target, "server", DefaultServerURL, "daemon control API URL")
}

func newStartCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "start <duration-secs> <interval-secs> <iterations>",
		Short: "Start a profiling session from the simple parameter triple",
		Long: `Start a profiling session.

All other configuration fields take the daemon's defaults. The values are
passed through unvalidated; the sampling engine rejects nonsensical ones.

Examples:
  # Three 10-second rounds, 2 seconds apart
  profiled start 10 2 3

  # Sample until stopped (iterations 0 means unbounded)
  profiled start 5 60 0`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var vals [3]uint32
			for i, arg := range args {
				v, err := strconv.ParseUint(arg, 10, 32)
				if err != nil {
					return fmt.Errorf("argument %q must be an unsigned integer", arg)
				}
				vals[i] = uint32(v)
			}

			req := startRequest{
				DurationSecs: vals[0],
				IntervalSecs: vals[1],
				Iterations:   vals[2],
			}
			if err := newClient(serverURL).postJSON("/v1/profiling/start", req); err != nil {
				return err
			}
			cmd.Println("Profiling started")
			return nil
		},
	}

	addServerFlag(cmd.Flags(), &serverURL)
	return cmd
}

// startRequest mirrors the control API's start body.
type startRequest struct {
	DurationSecs uint32 `json:"duration_secs"`
	IntervalSecs uint32 `json:"interval_secs"`
	Iterations   uint32 `json:"iterations"`
}

func newStartConfigCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "start-config [file]",
		Short: "Start a profiling session from an encoded configuration",
		Long: `Start a profiling session from an encoded configuration blob.

Reads the blob from the given file, or from stdin when the argument is "-"
or omitted. Fields present in the blob override the daemon's defaults;
absent fields keep them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			if err := newClient(serverURL).post("/v1/profiling/start-config", in, "application/octet-stream"); err != nil {
				return err
			}
			cmd.Println("Profiling started")
			return nil
		},
	}

	addServerFlag(cmd.Flags(), &serverURL)
	return cmd
}

func newStopCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running profiling session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(serverURL).post("/v1/profiling/stop", nil, "application/json"); err != nil {
				return err
			}
			cmd.Println("Stop requested")
			return nil
		},
	}

	addServerFlag(cmd.Flags(), &serverURL)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's session status as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := newClient(serverURL).get("/v1/profiling/status")
			if err != nil {
				return err
			}
			cmd.Print(string(body))
			return nil
		},
	}

	addServerFlag(cmd.Flags(), &serverURL)
	return cmd
}

func newDumpCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Show a human-readable dump of the daemon's session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := newClient(serverURL).get("/v1/profiling/dump")
			if err != nil {
				return err
			}
			cmd.Print(string(body))
			return nil
		},
	}

	addServerFlag(cmd.Flags(), &serverURL)
	return cmd
}
