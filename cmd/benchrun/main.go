package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Hakuto4838/GridSkipList/datastream"
	"github.com/Hakuto4838/GridSkipList/internal/config"
	"github.com/Hakuto4838/GridSkipList/internal/logging"
	"github.com/Hakuto4838/GridSkipList/internal/metrics"
	"github.com/Hakuto4838/GridSkipList/skiplist"
	"github.com/Hakuto4838/GridSkipList/skiplist/grid"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		file, dir  string
		out        string
		policies   string
		hold       time.Duration
		gen        datastream.GenConfig
	)

	flag.StringVar(&configPath, "config", "", "yaml config file")
	flag.StringVar(&file, "file", "", "existing bench file (SLSET001 format)")
	flag.StringVar(&dir, "dir", "", "directory containing bench files (all .bin files)")
	flag.StringVar(&out, "out", "", "output path to write a generated bench file")
	flag.IntVar(&gen.N, "n", 0, "number of keys for generation")
	flag.IntVar(&gen.K, "k", 0, "number of operations for generation")
	flag.Float64Var(&gen.S, "s", 1.07, "Zipf parameter s (0 for uniform)")
	flag.Float64Var(&gen.V, "v", 1.0, "Zipf parameter v")
	flag.Float64Var(&gen.Phase1Ratio, "phase1Ratio", 0.5, "ratio of phase1 operations")
	flag.Float64Var(&gen.RemoveRatio, "removeRatio", 0.1, "ratio of remove operations")
	flag.StringVar(&policies, "policy", "all", "height policies to run: all or comma list (clamp,fold)")
	flag.DurationVar(&hold, "hold", 0, "keep serving metrics for this long after the run")

	cfg := config.Default()
	flag.IntVar(&cfg.List.MaxLevel, "maxLevel", cfg.List.MaxLevel, "max level of the skip list")
	flag.Uint64Var(&cfg.List.Seed, "seed", uint64(time.Now().UnixNano()), "seed for generators and height draws")
	flag.IntVar(&cfg.Bench.Runs, "runs", cfg.Bench.Runs, "how many times to repeat each benchmark")
	flag.StringVar(&cfg.Logging.Level, "log", cfg.Logging.Level, "log level")
	flag.StringVar(&cfg.Metrics.Addr, "metrics", "", "serve prometheus metrics on this address")
	flag.Parse()

	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		overrideFromFlags(flag.CommandLine, loaded, cfg)
		cfg = loaded
	} else if cfg.Metrics.Addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Path = "/metrics"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	benchPaths, err := resolveBenchPaths(file, dir, cfg.Bench.Files)
	if err != nil {
		logger.Fatal("failed to collect bench files", zap.Error(err))
	}
	if len(benchPaths) == 0 {
		if out == "" {
			logger.Fatal("either -file, -dir, bench.files or -out with generation params (-n,-k,-s,-v) must be provided")
		}
		gen.Seed = cfg.List.Seed
		bf, err := datastream.Generate(gen)
		if err != nil {
			logger.Fatal("generate bench file", zap.Error(err))
		}
		if err := datastream.WriteBenchFileTo(out, bf); err != nil {
			logger.Fatal("write bench file", zap.Error(err))
		}
		logger.Info("generated bench file", zap.String("file", out))
		benchPaths = []string{out}
	}

	toRun, err := parsePolicies(policies)
	if err != nil {
		logger.Fatal("invalid -policy", zap.Error(err))
	}

	var collector *metrics.Collector
	var srv *http.Server
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector("gridskl", cfg.List.MaxLevel)
		srv = serveMetrics(logger, cfg.Metrics, collector)
	}

	b := &bencher{cfg: cfg, logger: logger, collector: collector}
	rows := make([][]string, 0, len(benchPaths)*len(toRun))
	for idx, path := range benchPaths {
		bf, err := datastream.ReadBenchFileFrom(path)
		if err != nil {
			logger.Error("skipping bench file", zap.String("file", path), zap.Error(err))
			continue
		}
		logger.Info("bench file loaded",
			zap.Int("index", idx+1),
			zap.Int("of", len(benchPaths)),
			zap.String("file", path),
			zap.Int("ops", len(bf.Ops)),
			zap.Float64("entropy", bf.Entropy()))

		for _, policy := range toRun {
			st, err := b.run(bf, policy)
			if err != nil {
				logger.Error("benchmark failed",
					zap.String("file", path),
					zap.Stringer("policy", policy),
					zap.Error(err))
				continue
			}
			rows = append(rows, st.row(filepath.Base(path), policy, len(bf.Ops)))
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Policy", "Runs", "Avg(ms)", "Min(ms)", "Max(ms)", "Ops/s", "Keys", "Top Level"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()

	if srv != nil {
		if hold > 0 {
			logger.Info("holding metrics endpoint", zap.Duration("hold", hold))
			time.Sleep(hold)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
}

type bencher struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
}

type benchStats struct {
	runs                int
	avgMs, minMs, maxMs float64
	keys, topLevel      int
}

func (st benchStats) row(file string, policy grid.HeightPolicy, ops int) []string {
	return []string{
		file,
		policy.String(),
		fmt.Sprintf("%d", st.runs),
		fmt.Sprintf("%.3f", st.avgMs),
		fmt.Sprintf("%.3f", st.minMs),
		fmt.Sprintf("%.3f", st.maxMs),
		opsPerSec(ops, st.avgMs),
		fmt.Sprintf("%d", st.keys),
		fmt.Sprintf("%d", st.topLevel),
	}
}

// opsPerSec 在平均時間為 0 時回傳 "-"
func opsPerSec(ops int, avgMs float64) string {
	if avgMs <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(ops)/(avgMs/1000.0))
}

func (b *bencher) newList(policy grid.HeightPolicy, run int, observe bool) (*grid.List[skiplist.K], error) {
	opts := []grid.Option{
		grid.WithSeed(b.cfg.List.Seed + uint64(run)),
		grid.WithHeightPolicy(policy),
		grid.WithCapacity(b.cfg.List.Capacity),
		grid.WithLogger(b.logger),
	}
	if observe && b.collector != nil {
		opts = append(opts, grid.WithObserver(b.collector))
	}
	return grid.New[skiplist.K](b.cfg.List.MaxLevel, opts...)
}

// run 重播 bench 檔 runs 次並計時，最後以一次額外的重播驗證結構並記錄 metrics
func (b *bencher) run(bf *datastream.BenchFile, policy grid.HeightPolicy) (benchStats, error) {
	runs := b.cfg.Bench.Runs
	durations := make([]float64, 0, runs)
	for i := 0; i < runs; i++ {
		sl, err := b.newList(policy, i, false)
		if err != nil {
			return benchStats{}, err
		}
		start := time.Now()
		if _, err := datastream.Replay(sl, bf.ToSequenceModel()); err != nil {
			return benchStats{}, err
		}
		durations = append(durations, time.Since(start).Seconds()*1000)
		sl.Destroy()
	}
	slices.Sort(durations)

	sample, err := b.newList(policy, 0, true)
	if err != nil {
		return benchStats{}, err
	}
	defer sample.Destroy()
	replayed, err := datastream.Replay(sample, bf.ToSequenceModel())
	if err != nil {
		return benchStats{}, err
	}
	if err := sample.Verify(); err != nil {
		return benchStats{}, fmt.Errorf("structure check after replay: %w", err)
	}
	if b.collector != nil {
		b.collector.RecordLevels(sample)
	}
	b.logger.Debug("replay finished",
		zap.Stringer("policy", policy),
		zap.Int("hits", replayed.Hits),
		zap.Int("removed", replayed.Removed),
		zap.Int("keys", sample.Len()))

	topLevel := 0
	for lvl := sample.MaxLevel(); lvl >= 0; lvl-- {
		if sample.LevelLen(lvl) > 0 {
			topLevel = lvl
			break
		}
	}

	var sum float64
	for _, d := range durations {
		sum += d
	}
	return benchStats{
		runs:     runs,
		avgMs:    sum / float64(len(durations)),
		minMs:    durations[0],
		maxMs:    durations[len(durations)-1],
		keys:     sample.Len(),
		topLevel: topLevel,
	}, nil
}

func serveMetrics(logger *zap.Logger, cfg config.MetricsConfig, c *metrics.Collector) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, c.Handler())
	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

// overrideFromFlags 將命令列明確指定的旗標覆寫到設定檔載入的 dst
func overrideFromFlags(fs *flag.FlagSet, dst, src *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "maxLevel":
			dst.List.MaxLevel = src.List.MaxLevel
		case "seed":
			dst.List.Seed = src.List.Seed
		case "runs":
			dst.Bench.Runs = src.Bench.Runs
		case "log":
			dst.Logging.Level = src.Logging.Level
		case "metrics":
			dst.Metrics.Addr = src.Metrics.Addr
			dst.Metrics.Enabled = src.Metrics.Addr != ""
		}
	})
}

// resolveBenchPaths 依 -dir、-file、設定檔的順序決定 bench 檔
func resolveBenchPaths(file, dir string, files []string) ([]string, error) {
	switch {
	case dir != "":
		return collectBenchFilesFromDir(dir)
	case file != "":
		return []string{file}, nil
	default:
		return files, nil
	}
}

// collectBenchFilesFromDir 收集指定目錄下所有 .bin 檔案
func collectBenchFilesFromDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".bin" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func parsePolicies(s string) ([]grid.HeightPolicy, error) {
	if s == "" || s == "all" {
		return []grid.HeightPolicy{grid.Clamp, grid.Fold}, nil
	}
	var out []grid.HeightPolicy
	for _, part := range strings.Split(s, ",") {
		p, err := grid.ParseHeightPolicy(part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}
