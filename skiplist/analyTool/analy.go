package analyTool

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Hakuto4838/GridSkipList/skiplist"
	"github.com/olekukonko/tablewriter"
)

// collectLevels 取出每一層的 key，第 0 層最多 maxNodes 個（<= 0 表示不限）
func collectLevels[T cmp.Ordered](sl skiplist.Analyable[T], maxNodes int) [][]T {
	levels := make([][]T, sl.MaxLevel()+1)
	for lvl := range levels {
		for k := range sl.LevelKeys(lvl) {
			if maxNodes > 0 && len(levels[lvl]) >= maxNodes {
				break
			}
			levels[lvl] = append(levels[lvl], k)
		}
	}
	return levels
}

// PrintSkipList 由最高層往下印出每一層，並以第 0 層對齊
func PrintSkipList[T cmp.Ordered](w io.Writer, sl skiplist.Analyable[T], maxNodes int) {
	levels := collectLevels(sl, maxNodes)
	ref := levels[0]

	for lvl := len(levels) - 1; lvl >= 0; lvl-- {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%2d]: HEAD ", lvl)
		row := levels[lvl]
		i := 0
		for _, k := range ref {
			if i < len(row) && row[i] == k {
				fmt.Fprintf(&sb, "->%5v ", k)
				i++
			} else {
				sb.WriteString("--------")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}
}

// PrintSkipListToCSV 將結構輸出為 CSV，每層一列，沒有節點的位置留空
func PrintSkipListToCSV[T cmp.Ordered](sl skiplist.Analyable[T], maxNodes int, writer *csv.Writer) error {
	levels := collectLevels(sl, maxNodes)
	ref := levels[0]

	for lvl := len(levels) - 1; lvl >= 0; lvl-- {
		row := make([]string, 0, len(ref)+1)
		row = append(row, fmt.Sprintf("level %d", lvl))
		i := 0
		for _, k := range ref {
			if i < len(levels[lvl]) && levels[lvl][i] == k {
				row = append(row, fmt.Sprint(k))
				i++
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// CheckStruct 只透過公開走訪檢查結構：每層遞增、上層是下層的子序列、最高層為空
func CheckStruct[T cmp.Ordered](sl skiplist.Analyable[T]) error {
	levels := collectLevels(sl, 0)
	var errs []error

	for lvl, keys := range levels {
		if len(keys) != sl.LevelLen(lvl) {
			errs = append(errs, fmt.Errorf("level %d: iterated %d keys, reported %d", lvl, len(keys), sl.LevelLen(lvl)))
		}
		for i := 1; i < len(keys); i++ {
			if keys[i-1] >= keys[i] {
				errs = append(errs, fmt.Errorf("level %d: %v before %v", lvl, keys[i-1], keys[i]))
				break
			}
		}
		if lvl == 0 {
			continue
		}
		lower := levels[lvl-1]
		j := 0
		for _, k := range keys {
			idx, ok := slices.BinarySearch(lower[j:], k)
			if !ok {
				errs = append(errs, fmt.Errorf("level %d: key %v missing from level %d", lvl, k, lvl-1))
				break
			}
			j += idx + 1
		}
	}
	if top := sl.MaxLevel(); len(levels[top]) != 0 {
		errs = append(errs, fmt.Errorf("level %d: top level holds %d keys", top, len(levels[top])))
	}
	return errors.Join(errs...)
}

// CountLevel 計算每層的節點數並以表格輸出
func CountLevel[T cmp.Ordered](w io.Writer, sl skiplist.Analyable[T]) []int {
	maxLevel := sl.MaxLevel()
	counts := make([]int, maxLevel+1)
	for lvl := range counts {
		counts[lvl] = sl.LevelLen(lvl)
	}

	total := counts[0]
	rows := make([][]string, 0, len(counts))
	for lvl := maxLevel; lvl >= 0; lvl-- {
		ratio := "-"
		if total > 0 {
			ratio = fmt.Sprintf("%.4f", float64(counts[lvl])/float64(total))
		}
		rows = append(rows, []string{fmt.Sprintf("%d", lvl), fmt.Sprintf("%d", counts[lvl]), ratio})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Level", "Nodes", "Ratio"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()

	return counts
}
