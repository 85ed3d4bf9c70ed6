// Package dataset 提供用户上传目录的扁平表结构与 CSV 装载。
//
// 设计要点：
//   - 表是一次性装载的快照：拟合读取它，之后不再变更
//   - 列按名字寻址，配合 core.SchemaMap 的逻辑角色映射使用
//   - 缺失值统一表示为空字符串，由各模型自行决定 blank/跳过语义
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/rushteam/recstudio/core"
)

// Table 是列命名的扁平表。行序即文件中的出现顺序，
// 内容模型的并列打破规则依赖这一顺序，装载后不得重排。
type Table struct {
	cols    []string
	colIdx  map[string]int
	rows    [][]string
	numRows int
}

// ReadCSV 从 r 读取 CSV，首行作为列名。
// 列数不一致的行视为数据损坏，直接报错而不是静默丢弃。
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	t := &Table{
		cols:   header,
		colIdx: make(map[string]int, len(header)),
	}
	for i, c := range header {
		t.colIdx[c] = i
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row %d: %w", t.numRows+1, err)
		}
		t.rows = append(t.rows, record)
		t.numRows++
	}
	return t, nil
}

// ReadCSVFile 从文件装载 CSV。
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// NewTable 直接由列名与行构造表（测试与内存数据源使用）。
func NewTable(cols []string, rows [][]string) *Table {
	t := &Table{
		cols:    cols,
		colIdx:  make(map[string]int, len(cols)),
		rows:    rows,
		numRows: len(rows),
	}
	for i, c := range cols {
		t.colIdx[c] = i
	}
	return t
}

// NumRows 返回数据行数（不含表头）。
func (t *Table) NumRows() int { return t.numRows }

// Columns 返回列名（按文件顺序）。
func (t *Table) Columns() []string { return t.cols }

// HasColumn 判断列是否存在。
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// Cell 返回第 row 行 name 列的值；列不存在或越界时返回空串。
// 缺失值（越界/未知列）与空值同样表示为 ""，与各模型的 blank 语义一致。
func (t *Table) Cell(row int, name string) string {
	idx, ok := t.colIdx[name]
	if !ok || row < 0 || row >= t.numRows {
		return ""
	}
	r := t.rows[row]
	if idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Column 返回整列值，长度等于 NumRows；列不存在时返回 nil。
func (t *Table) Column(name string) []string {
	idx, ok := t.colIdx[name]
	if !ok {
		return nil
	}
	out := make([]string, t.numRows)
	for i, r := range t.rows {
		if idx < len(r) {
			out[i] = r[idx]
		}
	}
	return out
}
