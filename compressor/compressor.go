// Package compressor shrinks the dense tables emitted for the scanner. A
// unique-entries table folds identical rows into one, and a row-displacement
// table overlays sparse rows on a single vector.
package compressor

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// OriginalTable is a dense row-major table.
type OriginalTable struct {
	entries  []int
	rowCount int
	colCount int
}

func NewOriginalTable(entries []int, colCount int) (*OriginalTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("entries is empty")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("colCount must be >=1")
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length or column count are incorrect; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &OriginalTable{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

// FromRows flattens rows of equal length into an OriginalTable.
func FromRows(rows [][]int) (*OriginalTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows is empty")
	}
	colCount := len(rows[0])
	entries := make([]int, 0, len(rows)*colCount)
	for i, row := range rows {
		if len(row) != colCount {
			return nil, fmt.Errorf("row %v has %v columns; want %v", i, len(row), colCount)
		}
		entries = append(entries, row...)
	}
	return NewOriginalTable(entries, colCount)
}

type Compressor interface {
	Compress(orig *OriginalTable) error
	Lookup(row, col int) (int, error)
	OriginalTableSize() (int, int)
}

var (
	_ Compressor = &UniqueEntriesTable{}
	_ Compressor = &RowDisplacementTable{}
)

// Expand rebuilds the dense rows of a compressed table.
func Expand(c Compressor) ([][]int, error) {
	rowCount, colCount := c.OriginalTableSize()
	rows := make([][]int, rowCount)
	for r := range rows {
		rows[r] = make([]int, colCount)
		for col := range rows[r] {
			v, err := c.Lookup(r, col)
			if err != nil {
				return nil, err
			}
			rows[r][col] = v
		}
	}
	return rows, nil
}

// UniqueEntriesTable stores each distinct row once. RowNums maps an original
// row to its stored row.
type UniqueEntriesTable struct {
	UniqueEntries    []int `json:"unique_entries,omitempty"`
	RowNums          []int `json:"row_nums"`
	OriginalRowCount int   `json:"original_row_count"`
	OriginalColCount int   `json:"original_col_count"`
}

func NewUniqueEntriesTable() *UniqueEntriesTable {
	return &UniqueEntriesTable{}
}

func (tab *UniqueEntriesTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return 0, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	return tab.UniqueEntries[tab.RowNums[row]*tab.OriginalColCount+col], nil
}

func (tab *UniqueEntriesTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

// UniqueRowCount returns the number of distinct rows.
func (tab *UniqueEntriesTable) UniqueRowCount() int {
	if tab.OriginalColCount == 0 {
		return 0
	}
	return len(tab.UniqueEntries) / tab.OriginalColCount
}

func rowKey(row []int) string {
	buf := make([]byte, 0, len(row)*binary.MaxVarintLen64)
	var b [binary.MaxVarintLen64]byte
	for _, v := range row {
		n := binary.PutVarint(b[:], int64(v))
		buf = append(buf, b[:n]...)
	}
	return string(buf)
}

func (tab *UniqueEntriesTable) Compress(orig *OriginalTable) error {
	var uniqueEntries []int
	rowNums := make([]int, orig.rowCount)
	key2RowNum := map[string]int{}
	for row := 0; row < orig.rowCount; row++ {
		start := row * orig.colCount
		entry := orig.entries[start : start+orig.colCount]
		k := rowKey(entry)
		rowNum, ok := key2RowNum[k]
		if !ok {
			rowNum = len(key2RowNum)
			key2RowNum[k] = rowNum
			uniqueEntries = append(uniqueEntries, entry...)
		}
		rowNums[row] = rowNum
	}

	tab.UniqueEntries = uniqueEntries
	tab.RowNums = rowNums
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount

	return nil
}

// ForbiddenValue marks a slot of Bounds that no row owns.
const ForbiddenValue = -1

// RowDisplacementTable overlays the non-empty cells of every row on Entries.
// Bounds records which row owns each slot.
type RowDisplacementTable struct {
	OriginalRowCount int   `json:"original_row_count"`
	OriginalColCount int   `json:"original_col_count"`
	EmptyValue       int   `json:"empty_value"`
	Entries          []int `json:"entries"`
	Bounds           []int `json:"bounds"`
	RowDisplacement  []int `json:"row_displacement"`
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
	}
}

func (tab *RowDisplacementTable) Lookup(row int, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	i := tab.RowDisplacement[row] + col
	if i >= len(tab.Bounds) || tab.Bounds[i] != row {
		return tab.EmptyValue, nil
	}
	return tab.Entries[i], nil
}

func (tab *RowDisplacementTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

type rowInfo struct {
	rowNum      int
	nonEmptyCol []int
}

func (tab *RowDisplacementTable) Compress(orig *OriginalTable) error {
	infos := make([]rowInfo, orig.rowCount)
	for row := range infos {
		infos[row].rowNum = row
		for col := 0; col < orig.colCount; col++ {
			if orig.entries[row*orig.colCount+col] != tab.EmptyValue {
				infos[row].nonEmptyCol = append(infos[row].nonEmptyCol, col)
			}
		}
	}
	// Dense rows are placed first while the vector is still empty.
	sort.SliceStable(infos, func(i int, j int) bool {
		return len(infos[i].nonEmptyCol) > len(infos[j].nonEmptyCol)
	})

	size := len(orig.entries) + orig.colCount
	entries := make([]int, size)
	bounds := make([]int, size)
	for i := range entries {
		entries[i] = tab.EmptyValue
		bounds[i] = ForbiddenValue
	}
	rowDisplacement := make([]int, orig.rowCount)
	bottom := 0

	next := 0
	for _, info := range infos {
		if len(info.nonEmptyCol) == 0 {
			continue
		}
		d := next
		for {
			for d+orig.colCount > len(bounds) {
				entries = append(entries, tab.EmptyValue)
				bounds = append(bounds, ForbiddenValue)
			}
			if !overlaps(bounds, d, info.nonEmptyCol) {
				break
			}
			d++
		}
		rowDisplacement[info.rowNum] = d
		for _, col := range info.nonEmptyCol {
			entries[d+col] = orig.entries[info.rowNum*orig.colCount+col]
			bounds[d+col] = info.rowNum
		}
		if d+orig.colCount > bottom {
			bottom = d + orig.colCount
		}
		next = d + 1
	}

	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	tab.Entries = entries[:bottom]
	tab.Bounds = bounds[:bottom]
	tab.RowDisplacement = rowDisplacement

	return nil
}

func overlaps(bounds []int, d int, cols []int) bool {
	for _, col := range cols {
		if bounds[d+col] != ForbiddenValue {
			return true
		}
	}
	return false
}
