package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glesirok/jsoncodec/pkg/codec"
	"github.com/glesirok/jsoncodec/pkg/config"
	"github.com/glesirok/jsoncodec/pkg/processor"
)

type options struct {
	configFile string
	dictionary string
	input      string
	output     string
	logLevel   string
	dryRun     bool
	backup     bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "jsoncodec",
		Short: "Encode and decode JSON message groups",
		Long: `jsoncodec converts message-group files between structured messages and raw JSON bodies.
Message types are resolved from a dictionary by HTTP method and URI, by an inner field, or by a constant.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Config file (defaults to ./jsoncodec.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&opts.dictionary, "dictionary", "d", "", "Dictionary file (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&opts.input, "input", "i", "", "Input file or directory (required)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output file/directory (optional, defaults to in-place)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Dry-run mode: preview results without writing files")
	rootCmd.PersistentFlags().BoolVar(&opts.backup, "backup", false, "Backup original files with .bak extension")

	rootCmd.MarkPersistentFlagRequired("input")

	rootCmd.AddCommand(
		newModeCommand(processor.ModeEncode, "Encode structured messages into raw JSON messages", opts),
		newModeCommand(processor.ModeDecode, "Decode raw JSON messages into structured messages", opts),
	)

	return rootCmd
}

func newModeCommand(mode processor.Mode, short string, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(mode, opts)
		},
	}
}

func run(mode processor.Mode, opts *options) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.dictionary != "" {
		cfg.Dictionary = opts.dictionary
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if cfg.Dictionary == "" {
		return fmt.Errorf("dictionary is required (--dictionary or config)")
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	proc, err := newProcessor(cfg, mode, logger)
	if err != nil {
		return err
	}

	// 判断输入类型
	info, err := os.Stat(opts.input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	if info.IsDir() {
		return processDirectory(proc, opts)
	}
	return processFile(proc, opts)
}

func newProcessor(cfg *config.Config, mode processor.Mode, logger *zap.Logger) (*processor.Processor, error) {
	file, err := os.Open(cfg.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer file.Close()

	factory := codec.NewFactory(codec.WithLogger(logger))
	if err := factory.Init(file); err != nil {
		return nil, err
	}

	c, err := factory.Create(cfg.Codec)
	if err != nil {
		return nil, fmt.Errorf("create codec: %w", err)
	}

	return processor.NewProcessor(c, mode, processor.WithLogger(logger))
}

func processFile(proc *processor.Processor, opts *options) error {
	outputFile := opts.output
	if outputFile == "" {
		outputFile = opts.input // 默认原地覆盖
	}

	// 只有原地覆盖才备份
	if opts.backup && !opts.dryRun && outputFile == opts.input {
		if err := processor.Backup(opts.input); err != nil {
			return err
		}
	}

	if err := proc.ProcessFile(opts.input, outputFile, opts.dryRun); err != nil {
		return err
	}

	if !opts.dryRun {
		if outputFile == opts.input {
			fmt.Printf("✓ Processed: %s\n", opts.input)
		} else {
			fmt.Printf("✓ Processed: %s → %s\n", opts.input, outputFile)
		}
	}
	return nil
}

func processDirectory(proc *processor.Processor, opts *options) error {
	if err := proc.ProcessDirectory(opts.input, opts.output, opts.dryRun, opts.backup); err != nil {
		return err
	}

	if !opts.dryRun {
		fmt.Println("✓ All files processed successfully")
	}
	return nil
}
