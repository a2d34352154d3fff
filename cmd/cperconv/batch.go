package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/arloliu/cper"
	"github.com/arloliu/cper/internal/collision"
	"github.com/arloliu/cper/internal/hash"
)

var (
	batchToCPER  bool
	batchWorkers int
	batchKeepDup bool
)

func init() {
	rootCmd.AddCommand(newBatchCmd())
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <input-dir> <output-dir>",
		Short: "Convert every file in a directory in parallel",
		Long: `The batch command converts each regular file under input-dir and writes
the result under output-dir with the same relative path. Records go to trees
unless --to-cper is given.

Records that normalise to the same bytes are converted once; later copies
are reported and skipped unless --keep-duplicates is set. A file that fails
to convert is logged and does not stop the batch.

Example:
  cperconv batch captures/ trees/ --format yaml --workers 8
  cperconv batch trees/ records/ --to-cper --compress zstd`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			workers := settings.Workers
			if cmd.Flags().Changed("workers") {
				workers = batchWorkers
			}

			stats, err := runBatch(cmd.Context(), args[0], args[1], workers)
			if err != nil {
				return err
			}
			logger.Info().Int("converted", stats.converted).Int("duplicates", stats.duplicates).
				Int("failed", stats.failed).Msg("batch finished")
			if stats.failed > 0 {
				return fmt.Errorf("%d of %d files failed", stats.failed, stats.total())
			}

			return nil
		},
	}
	cmd.Flags().BoolVar(&batchToCPER, "to-cper", false, "Encode trees to records instead of decoding records")
	cmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Parallel conversions (default from config, else CPU count)")
	cmd.Flags().BoolVar(&batchKeepDup, "keep-duplicates", false, "Convert duplicate records too")

	return cmd
}

type batchStats struct {
	converted  int
	duplicates int
	failed     int
}

func (s batchStats) total() int {
	return s.converted + s.duplicates + s.failed
}

type batchResult struct {
	duplicate bool
	err       error
}

// runBatch converts the files under inDir with a bounded pool of workers.
func runBatch(ctx context.Context, inDir, outDir string, workers int) (batchStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if workers < 1 {
		return batchStats{}, fmt.Errorf("workers must be positive, got %d", workers)
	}

	files, err := listFiles(inDir)
	if err != nil {
		return batchStats{}, err
	}
	logger.Info().Str("input", inDir).Int("files", len(files)).Int("workers", workers).Msg("batch started")

	tracker := collision.NewTracker()
	jobs := make(chan string)
	results := make(chan batchResult)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range jobs {
				dup, err := convertFile(inDir, outDir, rel, tracker)
				if err != nil {
					logger.Error().Err(err).Str("file", rel).Msg("conversion failed")
				}
				results <- batchResult{duplicate: dup, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rel := range files {
			select {
			case jobs <- rel:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats batchStats
	for res := range results {
		switch {
		case res.err != nil:
			stats.failed++
		case res.duplicate:
			stats.duplicates++
		default:
			stats.converted++
		}
	}
	if tracker.HasCollision() {
		logger.Warn().Int("collisions", tracker.Collisions()).Msg("fingerprint collisions resolved by comparison")
	}

	return stats, ctx.Err()
}

// listFiles returns the regular files under dir, relative to dir, in
// lexical order.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	return files, nil
}

// convertFile converts one file. It reports true when the record duplicates
// an earlier file and was skipped.
func convertFile(inDir, outDir, rel string, tracker *collision.Tracker) (bool, error) {
	data, err := readInput(filepath.Join(inDir, rel))
	if err != nil {
		return false, err
	}

	// Both directions fingerprint the normalised record bytes.
	var record, out []byte
	if batchToCPER {
		record, err = cper.TreeToRecord(data)
		out = record
	} else {
		record, err = cper.NormalizeRecord(data)
	}
	if err != nil {
		return false, err
	}

	if !batchKeepDup {
		if first, dup := tracker.Track(rel, hash.Fingerprint(record), record); dup {
			logger.Warn().Str("file", rel).Str("duplicate_of", first).Msg("duplicate record skipped")
			return true, nil
		}
	}

	name := stripExt(rel)
	if batchToCPER {
		name += ".cper"
	} else {
		out, err = cper.RecordToTree(record, cper.WithFormat(settings.Format), cper.WithIndent(settings.Indent))
		if err != nil {
			return false, err
		}
		name += settings.Format.Ext()
	}

	dst := filepath.Join(outDir, outputExt(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, err
	}

	return false, writeOutput(dst, out, !batchToCPER && treeText())
}

// stripExt removes a compression extension and then the data extension.
func stripExt(name string) string {
	for _, ext := range []string{".zst", ".s2", ".lz4"} {
		if trimmed, ok := strings.CutSuffix(name, ext); ok {
			name = trimmed
			break
		}
	}

	return strings.TrimSuffix(name, filepath.Ext(name))
}
