package cliapp

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"videoindex/internal/apperrors"
	"videoindex/internal/config"
	"videoindex/internal/logging"
	"videoindex/pkg/hashstore"
	"videoindex/pkg/phash"
	"videoindex/pkg/searcher"
)

// SearchCommand implements `videoindex search <image>`: it hashes a query
// image and reports the closest indexed frames, nearest first.
type SearchCommand struct {
	configPath string
	dbPath     string
	topK       int
	threshold  float64
	thumbWidth int
	noRender   bool
}

func (*SearchCommand) Name() string     { return "search" }
func (*SearchCommand) Synopsis() string { return "find the indexed frames closest to a query image" }
func (*SearchCommand) Usage() string {
	return `search [-top-k N] [-threshold F] <image>:
	Compute the perceptual hash of <image> and print the closest indexed
	frames, ordered by similarity, at or above -threshold.
`
}

func (c *SearchCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a config file")
	f.StringVar(&c.dbPath, "db", "", "index store path (overrides config)")
	f.IntVar(&c.topK, "top-k", 0, "number of results to return (overrides config)")
	f.Float64Var(&c.threshold, "threshold", -1, "minimum similarity [0,1] to report (overrides config)")
	f.IntVar(&c.thumbWidth, "thumb-width", 40, "terminal cell width for thumbnail previews, 0 to disable")
	f.BoolVar(&c.noRender, "no-render", false, "skip rendering thumbnail previews")
}

func (c *SearchCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	queryPath := f.Arg(0)

	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Printf("loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.dbPath != "" {
		cfg.DB.Path = c.dbPath
	}
	topK := cfg.Search.DefaultTopK
	if c.topK > 0 {
		topK = c.topK
	}
	threshold := cfg.Search.DefaultThreshold
	if c.threshold >= 0 {
		threshold = c.threshold
	}

	log, err := logging.New(cfg)
	if err != nil {
		fmt.Printf("building logger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync() //nolint:errcheck

	runID := uuid.New().String()

	queryImg, err := loadImage(queryPath)
	if err != nil {
		log.Error("loading query image", zap.String("run_id", runID), zap.String("path", queryPath), zap.Error(err))
		return subcommands.ExitFailure
	}
	query := phash.Compute(queryImg)

	store, err := hashstore.Open(cfg.DB.Path)
	if err != nil {
		log.Error("opening store", zap.String("run_id", runID), zap.String("db_path", cfg.DB.Path), zap.Error(apperrors.ErrStoreIO(cfg.DB.Path, err)))
		return subcommands.ExitFailure
	}
	defer store.Close()

	start := time.Now()
	lastLogged := time.Now()
	matches, err := searcher.Search(ctx, store, query, topK, func(bytesRead, total int64) {
		if time.Since(lastLogged) < 2*time.Second {
			return
		}
		lastLogged = time.Now()
		log.Info("scanning index", zap.String("run_id", runID), zap.Int64("bytes_read", bytesRead), zap.Int64("total_bytes", total))
	})
	if err != nil {
		log.Error("search failed", zap.String("run_id", runID), zap.Error(err))
		return subcommands.ExitFailure
	}

	log.Info("search complete",
		zap.String("run_id", runID),
		zap.Int("matches_scanned", len(matches)),
		zap.Duration("elapsed", time.Since(start)),
	)

	shown := 0
	for _, m := range matches {
		similarity := m.Similarity()
		if similarity < threshold {
			continue
		}
		shown++
		fmt.Printf("%.4f  %s  %s\n", similarity, formatTimestamp(m.Record.Time), m.Record.SourcePath)

		if c.noRender || c.thumbWidth <= 0 {
			continue
		}
		img, err := m.Record.LoadImage()
		if err != nil {
			continue
		}
		fmt.Print(RenderThumbnail(img, c.thumbWidth))
	}

	if shown == 0 {
		fmt.Println("no matches at or above threshold")
	}
	return subcommands.ExitSuccess
}

// formatTimestamp renders seconds as HH:MM:SS.ffff, per the CLI's result
// output format.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalSec := int64(seconds)
	fracUnits := int64((seconds-float64(totalSec))*10000 + 0.5)
	if fracUnits >= 10000 {
		fracUnits -= 10000
		totalSec++
	}
	hours := totalSec / 3600
	minutes := (totalSec % 3600) / 60
	secs := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d.%04d", hours, minutes, secs, fracUnits)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.ErrVideoFileNotFound(path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperrors.ErrDecodeFailed(path, err)
	}
	return img, nil
}
