package commands

import (
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/WhisperCapital/go-yd/internal/common"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the binding package",
	Long: `Generate every binding file into the output directory. Nothing is
written when generation fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, files, err := generate()
		if err != nil {
			return err
		}
		if err := common.WriteFiles(cfg.Output, files); err != nil {
			return err
		}

		for _, name := range common.SortedKeys(files) {
			pterm.Printf("  %s %s\n", pterm.Gray("→"), pterm.White(filepath.Join(cfg.Output, name)))
		}
		pterm.Success.Printf("Generated package %s: %d files\n", cfg.Package, len(files))
		return nil
	},
}
