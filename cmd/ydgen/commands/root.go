package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/gen"
)

var (
	configPath   string
	declarations string
	outputDir    string
	jsonLog      bool
	verbose      bool

	log = zap.NewNop()
)

// RootCmd is the ydgen entry point.
var RootCmd = &cobra.Command{
	Use:   "ydgen",
	Short: "Generate Go bindings for the YD trading API",
	Long: `ydgen reads the declaration dump of the native YD client header and
writes a cgo package: raw bindings, wrappers for the outbound API and a
callback bridge that turns listener calls into ordered Go events.

Examples:
  ydgen generate --config ydgen.yml
  ydgen check                         # fail if the bindings are stale
  ydgen inspect                       # print the dispatch tables
  ydgen watch                         # regenerate when inputs change`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(jsonLog, verbose)
		if err != nil {
			return err
		}
		log = l
		gen.SetLogger(l.Named("gen"))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default: built-in YD settings)")
	flags.StringVarP(&declarations, "declarations", "d", "", "declaration dump, overrides the config")
	flags.StringVarP(&outputDir, "output", "o", "", "output directory, overrides the config")
	flags.BoolVar(&jsonLog, "json-log", false, "log as JSON")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	RootCmd.AddCommand(generateCmd, checkCmd, inspectCmd, watchCmd)
}

func newLogger(json, verbose bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	if json {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		return config.Build()
	}
	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoder),
		zapcore.AddSync(os.Stderr),
		level,
	)), nil
}

// loadInputs reads the config, applies flag overrides and loads the
// declaration dump it points at.
func loadInputs() (*common.Config, *decl.Header, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if declarations != "" {
		cfg.Declarations = declarations
	}
	if outputDir != "" {
		cfg.Output = outputDir
	}

	header, err := decl.Load(cfg.Declarations)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("loaded declarations",
		zap.String("path", cfg.Declarations),
		zap.Int("decls", len(header.Root.Children)))
	return cfg, header, nil
}

func generate() (*common.Config, map[string][]byte, error) {
	cfg, header, err := loadInputs()
	if err != nil {
		return nil, nil, err
	}
	files, err := gen.NewGenerator(cfg, header).Generate()
	if err != nil {
		return nil, nil, err
	}
	return cfg, files, nil
}
