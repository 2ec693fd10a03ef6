package datastream

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/Hakuto4838/GridSkipList/skiplist"
)

// 檔案格式（LittleEndian）：
// [8]byte  Magic: "SLSET001"
// uint16   Version: 1
// uint16   Reserved: 0
// uint32   DistCount
// 重複 DistCount 次：
//   int64   Key
//   float64 Weight
// uint64   OpCount
// 重複 OpCount 次：
//   uint8   OperationType (0=Search,1=Insert,2=Remove)
//   int64   Key

var (
	benchMagic   = [8]byte{'S', 'L', 'S', 'E', 'T', '0', '0', '1'}
	benchVersion = uint16(1)
)

type BenchFile struct {
	Dist map[skiplist.K]float64
	Ops  []Operation
}

// GenConfig 是產生 benchmark 的參數
//   - N: key 數量
//   - S, V: Zipf 參數，S = 0 時使用均勻分布
//   - K: 操作數量（需 >= N，保證每個 key 至少出現一次）
//   - Phase1Ratio: 第一階段佔 K 的比例，第一階段涵蓋全部 key 並打亂
//   - RemoveRatio: key 已存在時改為刪除的機率
//   - SimpleKey: key 為 0..N-1；否則為隨機 uint32
type GenConfig struct {
	N           int
	K           int
	S           float64
	V           float64
	Seed        uint64
	Phase1Ratio float64
	RemoveRatio float64
	SimpleKey   bool
}

func (c GenConfig) Validate() error {
	if c.N <= 0 {
		return fmt.Errorf("invalid n: %d", c.N)
	}
	if c.K < c.N {
		return fmt.Errorf("k (%d) must be >= n (%d) to ensure each key appears at least once", c.K, c.N)
	}
	if p := c.phase1Size(); p < c.N || p > c.K {
		return fmt.Errorf("phase1Size (%d) must satisfy n <= phase1Size <= k", p)
	}
	if c.RemoveRatio < 0.0 || c.RemoveRatio > 1.0 {
		return fmt.Errorf("removeRatio (%v) must be between 0.0 and 1.0", c.RemoveRatio)
	}
	return nil
}

func (c GenConfig) phase1Size() int {
	return int(float64(c.K) * c.Phase1Ratio)
}

// Generate 依設定產生分布與操作序列
// 每個 key 第一次出現為 Insert；之後若存在則以 RemoveRatio 機率 Remove，否則 Search；
// 不存在時為 Insert
func Generate(cfg GenConfig) (*BenchFile, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := rand.New(rand.NewPCG(cfg.Seed, 0))
	ranks, err := NewRankSource(r, cfg.N, cfg.S, cfg.V)
	if err != nil {
		return nil, err
	}

	// rank -> key 的對應（不重複）
	rankToKey := make([]skiplist.K, cfg.N)
	if cfg.SimpleKey {
		for i := range rankToKey {
			rankToKey[i] = skiplist.K(i)
		}
		r.Shuffle(len(rankToKey), func(i, j int) { rankToKey[i], rankToKey[j] = rankToKey[j], rankToKey[i] })
	} else {
		check := make(map[skiplist.K]struct{}, cfg.N)
		for i := range rankToKey {
			key := skiplist.K(r.Uint32())
			for _, ok := check[key]; ok; _, ok = check[key] {
				key = skiplist.K(r.Uint32())
			}
			rankToKey[i] = key
			check[key] = struct{}{}
		}
	}

	dist := make(map[skiplist.K]float64, cfg.N)
	for rank, w := range rankWeights(cfg.N, cfg.S, cfg.V) {
		dist[rankToKey[rank]] = w
	}

	// 第一階段：前 N 個涵蓋全部 key，其餘依分布補齊後打亂
	phase1 := make([]skiplist.K, cfg.phase1Size())
	copy(phase1, rankToKey)
	for i := cfg.N; i < len(phase1); i++ {
		phase1[i] = rankToKey[ranks.Next()]
	}
	r.Shuffle(len(phase1), func(i, j int) { phase1[i], phase1[j] = phase1[j], phase1[i] })

	ops := make([]Operation, 0, cfg.K)
	present := make(map[skiplist.K]bool, cfg.N)
	emit := func(key skiplist.K) {
		op := OpInsert
		if present[key] {
			if r.Float64() < cfg.RemoveRatio {
				op = OpRemove
			} else {
				op = OpSearch
			}
		}
		present[key] = op != OpRemove
		ops = append(ops, Operation{Type: op, Key: key})
	}

	for _, key := range phase1 {
		emit(key)
	}
	for i := len(phase1); i < cfg.K; i++ {
		emit(rankToKey[ranks.Next()])
	}

	return &BenchFile{Dist: dist, Ops: ops}, nil
}

// rankWeights 計算每個 rank 的正規化機率
func rankWeights(n int, s, v float64) []float64 {
	weights := make([]float64, n)
	if s == 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
		return weights
	}
	var sum float64
	for i := range weights {
		weights[i] = 1.0 / math.Pow(v+float64(i), s)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// WriteBenchFile 將 BenchFile 寫成二進位格式，分布依 key 升冪輸出
func WriteBenchFile(w io.Writer, bf *BenchFile) error {
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	if _, err := bw.Write(benchMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, le, benchVersion); err != nil {
		return err
	}
	if err := binary.Write(bw, le, uint16(0)); err != nil { // reserved
		return err
	}

	keys := make([]skiplist.K, 0, len(bf.Dist))
	for k := range bf.Dist {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if err := binary.Write(bw, le, uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := binary.Write(bw, le, int64(k)); err != nil {
			return err
		}
		if err := binary.Write(bw, le, bf.Dist[k]); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, le, uint64(len(bf.Ops))); err != nil {
		return err
	}
	for _, op := range bf.Ops {
		if err := bw.WriteByte(byte(op.Type)); err != nil {
			return err
		}
		if err := binary.Write(bw, le, int64(op.Key)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBenchFileTo 寫入指定檔案
func WriteBenchFileTo(filename string, bf *BenchFile) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteBenchFile(file, bf); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return file.Close()
}

// ReadBenchFile 讀取二進位格式，回傳分布與操作序列
func ReadBenchFile(r io.Reader) (*BenchFile, error) {
	br := bufio.NewReader(r)
	le := binary.LittleEndian

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, err
	}
	if magic != benchMagic {
		return nil, fmt.Errorf("invalid magic: %q", magic)
	}
	var header struct {
		Version  uint16
		Reserved uint16
		Count    uint32
	}
	if err := binary.Read(br, le, &header); err != nil {
		return nil, err
	}
	if header.Version != benchVersion {
		return nil, fmt.Errorf("unsupported version: %d", header.Version)
	}

	dist := make(map[skiplist.K]float64, header.Count)
	for i := uint32(0); i < header.Count; i++ {
		var entry struct {
			Key    int64
			Weight float64
		}
		if err := binary.Read(br, le, &entry); err != nil {
			return nil, fmt.Errorf("dist entry %d: %w", i, err)
		}
		dist[skiplist.K(entry.Key)] = entry.Weight
	}

	var opCount uint64
	if err := binary.Read(br, le, &opCount); err != nil {
		return nil, err
	}
	ops := make([]Operation, 0, min(opCount, 1<<20))
	for i := uint64(0); i < opCount; i++ {
		t, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		if OperationType(t) > OpRemove {
			return nil, fmt.Errorf("op %d: unknown operation type %d", i, t)
		}
		var key int64
		if err := binary.Read(br, le, &key); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		ops = append(ops, Operation{Type: OperationType(t), Key: skiplist.K(key)})
	}

	return &BenchFile{Dist: dist, Ops: ops}, nil
}

// ReadBenchFileFrom 讀取指定檔案
func ReadBenchFileFrom(filename string) (*BenchFile, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	bf, err := ReadBenchFile(fd)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return bf, nil
}

// ToSequenceModel 將 BenchFile 轉為可重播的 SequenceModel
func (bf *BenchFile) ToSequenceModel() *SequenceModel {
	if bf == nil {
		return NewSequenceModelFromOps(nil)
	}
	return NewSequenceModelFromOps(bf.Ops)
}

// Entropy 計算分布的熵（單位：bit），忽略 <= 0 的值
func (bf *BenchFile) Entropy() float64 {
	h := 0.0
	for _, p := range bf.Dist {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

func (bf *BenchFile) DistributeToCSV(writer *csv.Writer) error {
	keys := make([]skiplist.K, 0, len(bf.Dist))
	for k := range bf.Dist {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	row1 := make([]string, 0, len(keys)+2)
	row2 := make([]string, 0, len(keys)+2)
	row1 = append(row1, "", "")
	row2 = append(row2, "", "")
	for _, k := range keys {
		row1 = append(row1, fmt.Sprintf("%d", k))
		row2 = append(row2, fmt.Sprintf("%f", bf.Dist[k]))
	}
	if err := writer.Write(row1); err != nil {
		return err
	}
	if err := writer.Write(row2); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
