package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Hakuto4838/GridSkipList/internal/config"
	"github.com/Hakuto4838/GridSkipList/internal/logging"
	"github.com/Hakuto4838/GridSkipList/skiplist"
	"github.com/Hakuto4838/GridSkipList/skiplist/analyTool"
	"github.com/Hakuto4838/GridSkipList/skiplist/grid"
	"go.uber.org/zap"
)

// 預設腳本：建立後插入 42、5、3，搜尋後依序刪除，最後重複刪除 3
const defaultScript = "i42 s42 i5 i3 s3 r5 s5 r42 r3 r3"

type command struct {
	op  byte
	key skiplist.K
}

// parseScript 解析以空白或逗號分隔的指令，例如 "i42 s42 r42"
func parseScript(s string) ([]command, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\n' || r == '\t' })
	cmds := make([]command, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			return nil, fmt.Errorf("invalid command %q", f)
		}
		op := f[0]
		if op != 'i' && op != 's' && op != 'r' {
			return nil, fmt.Errorf("invalid command %q: op must be i, s or r", f)
		}
		key, err := strconv.ParseInt(f[1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid command %q: %w", f, err)
		}
		cmds = append(cmds, command{op: op, key: skiplist.K(key)})
	}
	return cmds, nil
}

// overrideFromFlags 將命令列明確指定的旗標覆寫到設定檔載入的 dst
func overrideFromFlags(fs *flag.FlagSet, dst, src *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "maxLevel":
			dst.List.MaxLevel = src.List.MaxLevel
		case "seed":
			dst.List.Seed = src.List.Seed
		case "policy":
			dst.List.HeightPolicy = src.List.HeightPolicy
		case "log":
			dst.Logging.Level = src.Logging.Level
		}
	})
}

// run 依序執行指令，每次變更後印出結構並檢查
func run(w io.Writer, sl *grid.List[skiplist.K], cmds []command, printNodes int) error {
	for _, c := range cmds {
		switch c.op {
		case 'i':
			h, inserted, err := sl.Insert(c.key)
			if err != nil {
				return fmt.Errorf("insert %d: %w", c.key, err)
			}
			if !inserted {
				fmt.Fprintf(w, "insert %d: already present\n", c.key)
				continue
			}
			fmt.Fprintf(w, "insert %d: height %d\n", c.key, h)
		case 's':
			n, found := sl.Search(c.key)
			if found {
				fmt.Fprintf(w, "search %d: found at level %d\n", c.key, n.Level())
			} else {
				fmt.Fprintf(w, "search %d: not found\n", c.key)
			}
			continue
		case 'r':
			if !sl.Remove(c.key) {
				fmt.Fprintf(w, "remove %d: not found\n", c.key)
				continue
			}
			fmt.Fprintf(w, "remove %d: done\n", c.key)
		}
		analyTool.PrintSkipList[skiplist.K](w, sl, printNodes)
		if err := sl.Verify(); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	var (
		configPath, script string
		printNodes         int
	)
	cfg := config.Default()
	cfg.List.MaxLevel = 5
	flag.StringVar(&configPath, "config", "", "yaml config file")
	flag.StringVar(&script, "script", defaultScript, "commands: i<key> insert, s<key> search, r<key> remove")
	flag.IntVar(&printNodes, "print", 40, "keys per level to print, 0 for all")
	flag.IntVar(&cfg.List.MaxLevel, "maxLevel", cfg.List.MaxLevel, "max level of the skip list")
	flag.Uint64Var(&cfg.List.Seed, "seed", 0, "seed for height draws (0 for time based)")
	flag.StringVar(&cfg.List.HeightPolicy, "policy", cfg.List.HeightPolicy, "height policy: clamp or fold")
	flag.StringVar(&cfg.Logging.Level, "log", cfg.Logging.Level, "log level")
	flag.Parse()

	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		overrideFromFlags(flag.CommandLine, loaded, cfg)
		cfg = loaded
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
	cmds, err := parseScript(script)
	if err != nil {
		logger.Fatal("invalid -script", zap.Error(err))
	}
	opts, err := cfg.ListOptions()
	if err != nil {
		logger.Fatal("invalid list options", zap.Error(err))
	}
	sl, err := grid.New[skiplist.K](cfg.List.MaxLevel, append(opts, grid.WithLogger(logger))...)
	if err != nil {
		logger.Fatal("create skip list", zap.Error(err))
	}
	defer sl.Destroy()

	logger.Info("skip list created",
		zap.Int("max_level", sl.MaxLevel()),
		zap.Stringer("policy", sl.HeightPolicy()),
		zap.Int("commands", len(cmds)))
	if err := run(os.Stdout, sl, cmds, printNodes); err != nil {
		logger.Fatal("script failed", zap.Error(err))
	}
	logger.Info("done", zap.Int("keys", sl.Len()))
}
