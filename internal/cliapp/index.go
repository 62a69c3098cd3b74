package cliapp

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"videoindex/internal/apperrors"
	"videoindex/internal/config"
	"videoindex/internal/logging"
	"videoindex/pkg/ffmpegdecoder"
	"videoindex/pkg/framehash"
	"videoindex/pkg/hashstore"
	"videoindex/pkg/keyframe"
)

// IndexCommand implements `videoindex index <dir>`: it scans a directory for
// video files, extracts keyframes from each one not already present in the
// store, and appends them.
type IndexCommand struct {
	configPath string
	dbPath     string
	recurse    bool
	deltaThr   float64
	thumbMax   int
}

func (*IndexCommand) Name() string     { return "index" }
func (*IndexCommand) Synopsis() string { return "extract and store keyframe hashes for videos in a directory" }
func (*IndexCommand) Usage() string {
	return `index [-recurse] [-db path] <directory>:
	Scan <directory> for video files (.mp4, .webm), extract
	keyframes from each one not already indexed, and append their
	perceptual hashes to the store.
`
}

func (c *IndexCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a config file")
	f.StringVar(&c.dbPath, "db", "", "index store path (overrides config)")
	f.BoolVar(&c.recurse, "recurse", false, "scan directories recursively")
	f.Float64Var(&c.deltaThr, "delta-threshold", 0, "keyframe dedup threshold, fraction of 64 bits (overrides config)")
	f.IntVar(&c.thumbMax, "thumbnail-max", 0, "max thumbnail dimension in pixels (overrides config)")
}

func (c *IndexCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	dir := f.Arg(0)

	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Printf("loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.dbPath != "" {
		cfg.DB.Path = c.dbPath
	}
	if c.deltaThr > 0 {
		cfg.Extraction.KeyframeDeltaThreshold = c.deltaThr
	}
	if c.thumbMax > 0 {
		cfg.Extraction.ThumbnailMax = c.thumbMax
	}

	log, err := logging.New(cfg)
	if err != nil {
		fmt.Printf("building logger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync() //nolint:errcheck

	runID := uuid.New().String()

	if err := ffmpegdecoder.CheckInstallation(); err != nil {
		log.Error("ffmpeg not available", zap.String("run_id", runID), zap.Error(err))
		return subcommands.ExitFailure
	}

	store, err := hashstore.Open(cfg.DB.Path)
	if err != nil {
		log.Error("opening store", zap.String("run_id", runID), zap.String("db_path", cfg.DB.Path), zap.Error(err))
		return subcommands.ExitFailure
	}
	defer store.Close()

	already, err := store.IndexedPaths()
	if err != nil {
		log.Error("reading indexed paths", zap.String("run_id", runID), zap.Error(apperrors.ErrStoreIO(cfg.DB.Path, err)))
		return subcommands.ExitFailure
	}

	videos, err := ScanVideos(dir, c.recurse)
	if err != nil {
		log.Error("scanning directory", zap.String("run_id", runID), zap.String("dir", dir), zap.Error(err))
		return subcommands.ExitFailure
	}

	log.Info("starting index run",
		zap.String("run_id", runID),
		zap.String("dir", dir),
		zap.Int("videos_found", len(videos)),
		zap.Int("already_indexed", len(already)),
	)

	concurrency := cfg.Extraction.IndexConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu               sync.Mutex
		indexed, skipped int
		failed           int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range videos {
		if _, ok := already[path]; ok {
			mu.Lock()
			skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}

			// Each worker gets its own Extractor to avoid sharing mutable
			// state; the underlying Decoder and Store are safe for
			// concurrent use.
			extractor := keyframe.New(ffmpegdecoder.Decoder{})
			extractor.ThumbnailMax = cfg.Extraction.ThumbnailMax
			extractor.DeltaThreshold = cfg.Extraction.KeyframeDeltaThreshold

			start := time.Now()
			count := 0
			lastLogged := time.Now()

			err := extractor.Extract(gctx, path,
				func(fh *framehash.FrameHash) error {
					count++
					return store.Append(fh)
				},
				func(elapsed, total float64) {
					if time.Since(lastLogged) < 2*time.Second {
						return
					}
					lastLogged = time.Now()
					log.Info("extracting keyframes",
						zap.String("run_id", runID),
						zap.String("path", path),
						zap.Float64("elapsed_sec", elapsed),
						zap.Float64("duration_sec", total),
						zap.Int("keyframes_so_far", count),
					)
				},
			)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.Error("indexing video failed",
					zap.String("run_id", runID),
					zap.String("path", path),
					zap.Error(apperrors.ErrDecodeFailed(path, err)),
				)
				return nil
			}

			mu.Lock()
			indexed++
			mu.Unlock()
			log.Info("indexed video",
				zap.String("run_id", runID),
				zap.String("path", path),
				zap.Int("keyframe_count", count),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}

	_ = g.Wait()

	log.Info("index run complete",
		zap.String("run_id", runID),
		zap.Int("indexed", indexed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	if failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
