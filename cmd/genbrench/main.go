package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/Hakuto4838/GridSkipList/datastream"
	"github.com/Hakuto4838/GridSkipList/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// parseScientificNotation 解析科學記號字串（如 "1e5"）為整數
func parseScientificNotation(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// formatScientific 將數字格式化為科學記號（用於檔名）
func formatScientific(n int) string {
	if n == 0 {
		return "0"
	}
	exp := 0
	divisor := 1
	for n/divisor >= 10 {
		divisor *= 10
		exp++
	}
	coefficient := float64(n) / float64(divisor)
	if coefficient == float64(int(coefficient)) {
		return fmt.Sprintf("%de%d", int(coefficient), exp)
	}
	return fmt.Sprintf("%.1fe%d", coefficient, exp)
}

// formatDecimal 將浮點數格式化為不含小數點的字串（用於檔名）
func formatDecimal(f float64) string {
	val := int(f*100 + 0.5)
	switch {
	case val%100 == 0:
		return fmt.Sprintf("%d", val/100)
	case val%10 == 0:
		return fmt.Sprintf("%d_%d", val/100, (val%100)/10)
	default:
		return fmt.Sprintf("%d_%02d", val/100, val%100)
	}
}

func defaultPrefix(cfg datastream.GenConfig) string {
	return fmt.Sprintf("bench_n%s_k%s_s%s_v%s_p1r%s_rr%s",
		formatScientific(cfg.N),
		formatScientific(cfg.K),
		formatDecimal(cfg.S),
		formatDecimal(cfg.V),
		formatDecimal(cfg.Phase1Ratio),
		formatDecimal(cfg.RemoveRatio))
}

func main() {
	var (
		out, path, nStr, kStr string
		logLevel              string
		cfg                   datastream.GenConfig
		seed                  int64
		nums, workers         int
	)

	flag.StringVar(&nStr, "n", "0", "number of keys (支援科學記號，如 1e5)")
	flag.StringVar(&kStr, "k", "0", "number of operations to generate (支援科學記號，如 1e6)")
	flag.Float64Var(&cfg.S, "s", 1.07, "Zipf parameter s (設為 0 時使用均勻分布)")
	flag.Float64Var(&cfg.V, "v", 1.0, "Zipf parameter v")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "seed for the generator")
	flag.Float64Var(&cfg.Phase1Ratio, "phase1Ratio", 0.5, "ratio of phase1 operations")
	flag.Float64Var(&cfg.RemoveRatio, "removeRatio", 0.1, "ratio of remove operations")
	flag.BoolVar(&cfg.SimpleKey, "simple", false, "keys are 0..n-1 instead of random uint32")
	flag.IntVar(&nums, "nums", 1, "number of files to generate")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "files generated concurrently")
	flag.StringVar(&out, "out", "", "output filename prefix (留空則自動生成)")
	flag.StringVar(&path, "path", ".", "output directory path")
	flag.StringVar(&logLevel, "log", "info", "log level")
	flag.Parse()

	logger, err := logging.New(logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.N, err = parseScientificNotation(nStr); err != nil {
		logger.Fatal("invalid -n", zap.String("n", nStr), zap.Error(err))
	}
	if cfg.K, err = parseScientificNotation(kStr); err != nil {
		logger.Fatal("invalid -k", zap.String("k", kStr), zap.Error(err))
	}
	cfg.Seed = uint64(seed)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid generation parameters", zap.Error(err))
	}
	if out == "" {
		out = defaultPrefix(cfg)
	}
	if path != "." && path != "" {
		if err := os.MkdirAll(path, 0o755); err != nil {
			logger.Fatal("failed to create output directory", zap.String("path", path), zap.Error(err))
		}
	}

	logger.Info("generating bench files",
		zap.Int("n", cfg.N),
		zap.Int("k", cfg.K),
		zap.Float64("s", cfg.S),
		zap.Float64("v", cfg.V),
		zap.Float64("phase1_ratio", cfg.Phase1Ratio),
		zap.Float64("remove_ratio", cfg.RemoveRatio),
		zap.Int64("seed", seed),
		zap.Int("files", nums),
		zap.String("path", path),
		zap.String("prefix", out))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i := 0; i < nums; i++ {
		filename := out + ".bin"
		if nums > 1 {
			filename = fmt.Sprintf("%s_%d.bin", out, i)
		}
		outfile := filepath.Join(path, filename)
		fileCfg := cfg
		fileCfg.Seed = cfg.Seed + uint64(i)

		g.Go(func() error {
			start := time.Now()
			bf, err := datastream.Generate(fileCfg)
			if err != nil {
				return fmt.Errorf("generate %s: %w", outfile, err)
			}
			if err := datastream.WriteBenchFileTo(outfile, bf); err != nil {
				return err
			}
			logger.Info("bench file written",
				zap.String("file", outfile),
				zap.Int("ops", len(bf.Ops)),
				zap.Float64("entropy", bf.Entropy()),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("bench generation failed", zap.Error(err))
	}
	logger.Info("done")
}
