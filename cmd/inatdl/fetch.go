package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/disk"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
	"golang.org/x/time/rate"

	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/batch"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/config"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/fetch"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/naming"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/progress"
)

// minFreeBytes is the free-space floor checked before a batch starts
// writing into a local directory.
const minFreeBytes = 100 * 1024 * 1024

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	input := fs.String("input", "", "Path to a CSV export with an image_url column, or a plain list with one URL per line (required)")
	dest := fs.String("dest", "", "Destination directory or bucket URL (required)")
	configPath := fs.String("config", "", "Path to YAML config file")
	timeout := fs.Duration("timeout", 0, "Per-attempt timeout")
	attempts := fs.Int("attempts", 0, "Total attempts per URL, first try included")
	retryDelay := fs.Duration("retry-delay", 0, "Backoff unit between attempts")
	minSize := fs.Int("min-size", -1, "Smallest payload accepted as an image, in bytes (0 disables)")
	rateLimit := fs.Float64("rate", 0, "Maximum fetch starts per second (0 = unpaced)")
	userAgent := fs.String("user-agent", "", "User-Agent header")
	quiet := fs.Bool("quiet", false, "Disable live progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: inatdl fetch [options]

Fetch every image URL in an iNaturalist CSV export (or a plain URL
list) and write each to a numbered file
(image_1.jpg, image_2.png, ...) in the destination. Numbering resumes
past whatever image_N files the destination already holds. Failed URLs
are reported and skipped; they never stop the batch. Ctrl-C stops after
the current image.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	cfg = cfg.Merge(config.Config{
		Input:     *input,
		Dest:      *dest,
		Timeout:   *timeout,
		Rate:      *rateLimit,
		UserAgent: *userAgent,
		Retry: config.RetryConfig{
			Attempts: *attempts,
			Delay:    *retryDelay,
		},
	})
	if *minSize >= 0 {
		cfg.MinSize = *minSize
	}
	if *quiet {
		cfg.Progress = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	urls, skipped, err := readURLList(cfg.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInputError
	}
	if len(urls) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no URLs found in %s\n", cfg.Input)
		return ExitInputError
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "[inatdl] Skipping %d blank rows, fetching %d URLs\n", skipped, len(urls))
	}

	ctx := context.Background()

	bucket, err := openDest(ctx, cfg.Dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitDestError
	}
	defer bucket.Close()

	if err := probeDest(ctx, bucket); err != nil {
		fmt.Fprintf(os.Stderr, "Error: destination is not writable: %v\n", err)
		return ExitDestError
	}

	startIndex, err := naming.StartIndex(ctx, bucket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitDestError
	}
	if startIndex > 1 {
		fmt.Fprintf(os.Stderr, "[inatdl] Destination already numbered up to image_%d, continuing at image_%d\n", startIndex-1, startIndex)
	}

	items := make([]batch.Item, len(urls))
	for i, u := range urls {
		items[i] = batch.Item{Index: i, URL: u}
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	var reporter *progress.Reporter
	onProgress := func(progress.Snapshot) {}
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			Total: len(items),
			Label: cfg.Dest,
		})
		reporter.Start()
		onProgress = reporter.Observe
	}

	runner := batch.NewRunner(batch.Options{
		Fetcher: fetch.NewClient(fetch.Options{
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.Retry.Attempts,
			BaseDelay:   cfg.Retry.Delay,
			MinSize:     cfg.MinSize,
			UserAgent:   cfg.UserAgent,
		}),
		Bucket:     bucket,
		StartIndex: startIndex,
		OnProgress: onProgress,
		Limiter:    limiter,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[inatdl] Cancelling after the current image...")
		runner.Cancel()
	}()

	summary, err := runner.Run(ctx, items)
	if reporter != nil {
		reporter.Stop()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	printSummary(summary, len(items), skipped)

	if summary.Successes == 0 && summary.Failures > 0 {
		return ExitAllFailed
	}
	return ExitSuccess
}

// urlColumns are the header names recognized in a CSV export, in
// priority order.
var urlColumns = []string{"image_url", "IMAGE_URL", "Image_URL", "url", "URL"}

// readURLList reads the input list. A .csv file is treated as an
// iNaturalist export: the URL column is located by header name and
// blank cells are skipped. Any other file is read as one URL per line,
// skipping blank rows. The skipped count is reported to the user;
// blank rows never reach the batch.
func readURLList(path string) (urls []string, skipped int, err error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSVList(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open URL list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			skipped++
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read URL list: %w", err)
	}

	return urls, skipped, nil
}

// readCSVList reads URLs from an export's URL column. Ragged rows are
// tolerated; a row whose URL cell is blank or absent counts as skipped,
// same as a blank line in a plain list.
func readCSVList(path string) (urls []string, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open URL list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read CSV header: %w", err)
	}

	col := -1
	for _, name := range urlColumns {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, 0, fmt.Errorf("%s has no image_url column", path)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read CSV row: %w", err)
		}
		if col >= len(record) {
			skipped++
			continue
		}
		cell := strings.TrimSpace(record[col])
		if cell == "" {
			skipped++
			continue
		}
		urls = append(urls, cell)
	}

	return urls, skipped, nil
}

// openDest opens the destination. A plain path becomes a local fileblob
// bucket; anything with a scheme is handed to the gocloud URL opener.
func openDest(ctx context.Context, dest string) (*blob.Bucket, error) {
	if strings.Contains(dest, "://") {
		bucket, err := blob.OpenBucket(ctx, dest)
		if err != nil {
			return nil, fmt.Errorf("open destination bucket: %w", err)
		}
		return bucket, nil
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("destination directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("destination is not a directory: %s", dest)
	}

	if err := checkFreeSpace(dest); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination path: %w", err)
	}

	// No sidecar metadata files: the directory must hold nothing but
	// image_N.ext, since those names are the resume state.
	bucket, err := fileblob.OpenBucket(abs, &fileblob.Options{Metadata: fileblob.MetadataDontWrite})
	if err != nil {
		return nil, fmt.Errorf("open destination directory: %w", err)
	}
	return bucket, nil
}

// checkFreeSpace refuses to start a batch into a nearly-full disk. An
// unreadable usage reading is not fatal; the batch proceeds.
func checkFreeSpace(dir string) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		return nil
	}
	if usage.Free < minFreeBytes {
		return fmt.Errorf("not enough disk space: %s free, need at least %s",
			progress.FormatBytes(int64(usage.Free)), progress.FormatBytes(minFreeBytes))
	}
	return nil
}

// probeDest verifies the destination accepts writes before any image is
// fetched, so permission problems surface as one clear pre-flight error
// instead of a failure per item.
func probeDest(ctx context.Context, bucket *blob.Bucket) error {
	const key = ".inatdl-write-check"
	if err := bucket.WriteAll(ctx, key, []byte{}, nil); err != nil {
		return err
	}
	return bucket.Delete(ctx, key)
}

func printSummary(s *batch.Summary, total, skipped int) {
	if s.CancelledEarly {
		fmt.Fprintf(os.Stderr, "[inatdl] Cancelled: %d fetched, %d failed, %d never attempted\n",
			s.Successes, s.Failures, total-s.Successes-s.Failures)
	} else {
		fmt.Fprintf(os.Stderr, "[inatdl] Done: %d fetched, %d failed\n", s.Successes, s.Failures)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "[inatdl] Skipped %d blank input rows\n", skipped)
	}
	fmt.Fprintf(os.Stderr, "[inatdl] %s in %s\n",
		progress.FormatBytes(int64(s.TotalBytes)), progress.FormatDuration(s.Elapsed))
	if s.FirstFailure != nil {
		fmt.Fprintf(os.Stderr, "[inatdl] First failure: %s (%s)\n", s.FirstFailure.URL, s.FirstFailure.Message)
	}
}
