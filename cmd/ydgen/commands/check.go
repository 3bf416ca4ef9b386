package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/WhisperCapital/go-yd/internal/gen"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the generated bindings are up to date",
	Long: `Regenerate in memory and compare with the files in the output
directory. Exits non-zero when any file is missing or differs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, files, err := generate()
		if err != nil {
			return err
		}
		stale, err := gen.Stale(cfg.Output, files)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			pterm.Success.Println("Bindings are up to date")
			return nil
		}

		pterm.Warning.Println("Bindings are out of date:")
		for _, name := range stale {
			pterm.Printf("  - %s\n", name)
		}
		return errors.Newf("%d generated files are stale; run 'ydgen generate'", len(stale))
	},
}
