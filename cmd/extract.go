package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/sink"
	"github.com/JakeFAU/codecrawler/internal/worker"
)

// newExtractCmd creates the 'extract' subcommand, which rebuilds text and
// code records from a previously written HTML log.
func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Re-extracts text and code from a saved HTML log",
		Long: `Reads an HTML log written by 'crawl' and writes fresh text records,
code metadata and code artifacts for every successfully fetched page.
Malformed lines are logged and skipped.`,
		RunE: runExtractCommand,
	}
	cmd.Flags().String("input", "", "HTML log (jsonl) to read")
	cmd.Flags().String("seed", "", "URL whose domain names the output logs; defaults to the first record's host")
	cmd.Flags().String("output-dir", "", "directory receiving records and artifacts")
	cmd.Flags().Int("min-code", 0, "shortest code block kept, in characters")
	cmd.Flags().Bool("main-content", false, "limit document text to the main content container")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runExtractCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config
	logger := appInstance.Logger

	input, _ := cmd.Flags().GetString("input")
	seed, _ := cmd.Flags().GetString("seed")
	if seed == "" {
		if seed, err = firstRecordURL(input); err != nil {
			return err
		}
	}

	store, err := sink.NewStore(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("prepare output directory: %w", err)
	}
	out, err := sink.NewOutput(store, seed, sink.WithoutHTMLLog(), sink.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			logger.Warn("close output failed", zap.Error(cerr))
		}
	}()

	file, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open html log: %w", err)
	}
	defer file.Close()

	stats, err := worker.Replay(cmd.Context(), file, newExtractor(cfg), out, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records (%d skipped, %d malformed, %d failed), %d code blocks\n",
		input, stats.Records, stats.Skipped, stats.Malformed, stats.Failed, stats.CodeBlocks)
	return nil
}

// firstRecordURL returns the URL of the first well-formed record in path.
func firstRecordURL(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open html log: %w", err)
	}
	defer file.Close()

	var first string
	errStop := errors.New("stop")
	err = sink.ReadHTMLRecords(file, func(record sink.HTMLRecord) error {
		first = record.URL
		return errStop
	}, nil)
	if first != "" {
		return first, nil
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("html log %s has no records", path)
}
