package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/serializer"
)

// SerializeOptions holds flags for the serialize command.
type SerializeOptions struct {
	*RootOptions
	MAC      string
	Capacity int
}

// SerializeResult is the JSON payload of the serialize command.
type SerializeResult struct {
	Documents []serializer.Wire `json:"documents"`
	Footprint []int             `json:"footprint"`
	Tail      []string          `json:"tail,omitempty"`
}

// NewSerializeCommand creates the serialize command.
func NewSerializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SerializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serialize <log-file>",
		Short: "Build upload documents from a meal log",
		Long: `Build the upload documents a meal log would produce.

Complete meals are packed into documents no larger than --capacity
bytes. Lines after the last FIN-COMIDA are reported as the tail and are
not serialized.

Examples:
  smartscale serialize data/pending.txt
  smartscale serialize data/pending.txt --capacity 512 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSerialize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MAC, "mac", "", "scale MAC address (default: from config)")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "document capacity in bytes (default: from config)")

	return cmd
}

func runSerialize(opts *SerializeOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	mac := opts.MAC
	if mac == "" {
		mac = cfg.MAC
	}
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = cfg.Serializer.Capacity
	}
	if capacity < 0 {
		return out.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("invalid capacity %d", capacity), nil)
	}

	lines, err := readLogFile(path)
	if err != nil {
		return failRead(out, path, err)
	}
	out.VerboseLog("Read %d lines from %s", len(lines), path)

	results, tail, err := serializer.NewBuilder(mac, serializer.WithCapacity(capacity)).Split(lines)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeInvalidInput, "failed to serialize meals", err)
	}

	res := SerializeResult{Documents: []serializer.Wire{}, Footprint: []int{}}
	for _, r := range results {
		res.Documents = append(res.Documents, r.Document.Wire())
		res.Footprint = append(res.Footprint, r.Document.Footprint())
	}
	if len(tail) > 0 {
		res.Tail = mealog.Strings(tail)
	}

	if opts.Format == "json" {
		return out.Success(res)
	}

	w := cmd.OutOrStdout()
	for i, r := range results {
		data, err := r.Document.Encode()
		if err != nil {
			return out.Fail(ExitFailure, ErrCodeGeneric, "failed to encode document", err)
		}
		fmt.Fprintf(w, "# document %d: %d meal(s), %d/%d bytes\n", i+1, r.Meals, r.Document.Footprint(), r.Document.Capacity())
		fmt.Fprintln(w, string(data))
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No complete meals.")
	}
	if len(tail) > 0 {
		fmt.Fprintf(w, "# %d line(s) after the last complete meal\n", len(tail))
	}
	return nil
}

// readLogFile parses a meal log file. Blank lines are skipped.
func readLogFile(path string) ([]mealog.Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []string
	for _, s := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(s) != "" {
			raw = append(raw, s)
		}
	}
	return mealog.ParseAll(raw)
}

func failRead(out *OutputFormatter, path string, err error) error {
	if os.IsNotExist(err) {
		return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
	}
	return out.Fail(ExitFailure, ErrCodeInvalidInput, fmt.Sprintf("failed to read %s", path), err)
}
