package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ppiankov/icfextract/internal/extract"
)

// recoverCmd represents the recover command
var recoverCmd = &cobra.Command{
	Use:   "recover [file|-]",
	Short: "Recover a structured answer from raw agent text",
	Long: `Recover runs the response recovery parser over raw agent output and
prints the strategy that succeeded and the recovered record as JSON.

Reads stdin when no file (or "-") is given.

Example:
  icfextract recover reply.txt
  pbpaste | icfextract recover`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return errors.Wrap(err, "read agent text")
	}

	rec, ok := extract.RecoverWithMethod(string(raw))
	if !ok {
		return errors.WithHint(errors.New("no structured answer could be recovered"),
			"free-form replies must be longer than 20 characters to be kept")
	}

	out, err := json.MarshalIndent(rec.Record, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "method: %s\n%s\n", rec.Method, out)
	return nil
}
