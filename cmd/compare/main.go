package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"

	"github.com/Hakuto4838/GridSkipList/internal/logging"
	"github.com/Hakuto4838/GridSkipList/skiplist"
	"github.com/Hakuto4838/GridSkipList/skiplist/analyTool"
	"github.com/Hakuto4838/GridSkipList/skiplist/grid"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

// expectedShare 回傳 policy 下高度 h 的理論機率
func expectedShare(policy grid.HeightPolicy, maxLevel, h int) float64 {
	if policy == grid.Fold {
		// h, h+maxLevel, h+2*maxLevel ... 的幾何級數和
		return math.Pow(2, -float64(h+1)) / (1 - math.Pow(2, -float64(maxLevel)))
	}
	if h == maxLevel-1 {
		return math.Pow(2, -float64(maxLevel-1))
	}
	return math.Pow(2, -float64(h+1))
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// drawHeights 直接抽 n 次高度並統計每個高度出現的次數
func drawHeights(policy grid.HeightPolicy, maxLevel, n int, seed uint64) []int {
	gen := grid.NewHeightGenerator(newRand(seed), maxLevel, policy)
	counts := make([]int, maxLevel)
	for i := 0; i < n; i++ {
		counts[gen.Next()]++
	}
	return counts
}

// buildList 依序插入 0..n-1 並確認結構
func buildList(logger *zap.Logger, policy grid.HeightPolicy, maxLevel, n int, seed uint64) (*grid.List[skiplist.K], error) {
	sl, err := grid.New[skiplist.K](maxLevel,
		grid.WithSeed(seed),
		grid.WithHeightPolicy(policy),
		grid.WithSizeHint(2*n),
		grid.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	for k := 0; k < n; k++ {
		if _, _, err := sl.Insert(skiplist.K(k)); err != nil {
			sl.Destroy()
			return nil, err
		}
	}
	if err := analyTool.CheckStruct[skiplist.K](sl); err != nil {
		sl.Destroy()
		return nil, fmt.Errorf("%s: %w", policy, err)
	}
	return sl, nil
}

func writeHeightTable(w io.Writer, maxLevel, draws int, counts map[grid.HeightPolicy][]int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Height", "Clamp", "Clamp Expected", "Fold", "Fold Expected"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for h := 0; h < maxLevel; h++ {
		table.Append([]string{
			fmt.Sprintf("%d", h),
			fmt.Sprintf("%.4f", float64(counts[grid.Clamp][h])/float64(draws)),
			fmt.Sprintf("%.4f", expectedShare(grid.Clamp, maxLevel, h)),
			fmt.Sprintf("%.4f", float64(counts[grid.Fold][h])/float64(draws)),
			fmt.Sprintf("%.4f", expectedShare(grid.Fold, maxLevel, h)),
		})
	}
	table.Render()
}

func main() {
	var (
		n, draws, maxLevel, printNodes int
		seed                           uint64
		logLevel                       string
	)
	flag.IntVar(&n, "n", 900, "number of keys inserted into each list")
	flag.IntVar(&draws, "draws", 1_000_000, "number of raw height draws per policy")
	flag.IntVar(&maxLevel, "maxLevel", 6, "max level of the skip lists")
	flag.IntVar(&printNodes, "print", 35, "keys per level to print, 0 to skip")
	flag.Uint64Var(&seed, "seed", 42, "seed for height draws")
	flag.StringVar(&logLevel, "log", "info", "log level")
	flag.Parse()

	logger, err := logging.New(logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if maxLevel <= 0 || n < 0 || draws <= 0 {
		logger.Fatal("invalid parameters",
			zap.Int("n", n), zap.Int("draws", draws), zap.Int("max_level", maxLevel))
	}

	policies := []grid.HeightPolicy{grid.Clamp, grid.Fold}
	counts := make(map[grid.HeightPolicy][]int, len(policies))
	for _, p := range policies {
		counts[p] = drawHeights(p, maxLevel, draws, seed)
	}
	fmt.Printf("=== height distribution (maxLevel=%d, draws=%d) ===\n", maxLevel, draws)
	writeHeightTable(os.Stdout, maxLevel, draws, counts)

	for _, p := range policies {
		sl, err := buildList(logger, p, maxLevel, n, seed)
		if err != nil {
			logger.Fatal("build list", zap.Stringer("policy", p), zap.Error(err))
		}
		fmt.Printf("\n=== %s ===\n", p)
		analyTool.CountLevel[skiplist.K](os.Stdout, sl)
		if printNodes > 0 {
			analyTool.PrintSkipList[skiplist.K](os.Stdout, sl, printNodes)
		}
		sl.Destroy()
	}
}
