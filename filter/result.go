package filter

import (
	"fmt"

	"github.com/mj3cheun/kruda/schema"
	"github.com/mj3cheun/kruda/table"
)

// ResultEntry selects what a matched row contributes to the result table.
// With As set, the source column's value is copied to the result column
// named As. Without it, the source row index lands in the reserved
// empty-named u32 column.
type ResultEntry struct {
	Column string `json:"column"`
	As     string `json:"as,omitempty"`
}

// RowIndexColumn is the reserved name of the virtual column result writers
// use for source row indices.
const RowIndexColumn = ""

// CompileWriter binds the result description against the source cursor and
// the result table. The returned writer claims a result row atomically and
// fills it from the live source row, which the caller must have positioned.
func CompileWriter(desc []ResultEntry, src *table.Row, result *table.Table) (func(srcIndex uint32), error) {

	dst := result.Cursor()

	fields := make([]func(srcIndex uint32), len(desc))

	for i, entry := range desc {

		if entry.As == "" {

			dstCol := dst.ColumnIndex(RowIndexColumn)
			if dstCol < 0 {
				return nil, fmt.Errorf("result table has no row index column for entry %d", i)
			}
			if dst.ColumnType(dstCol) != schema.Uint32FieldType {
				return nil, fmt.Errorf("row index column must be Uint32, got %s", dst.ColumnType(dstCol).String())
			}

			fields[i] = func(srcIndex uint32) {
				dst.SetFloat(dstCol, float64(srcIndex))
			}
			continue
		}

		srcCol := src.ColumnIndex(entry.Column)
		if srcCol < 0 {
			return nil, fmt.Errorf("%w: source `%s`", schema.ErrColumnNotFound, entry.Column)
		}

		dstCol := dst.ColumnIndex(entry.As)
		if dstCol < 0 {
			return nil, fmt.Errorf("%w: result `%s`", schema.ErrColumnNotFound, entry.As)
		}

		srcType := src.ColumnType(srcCol)
		dstType := dst.ColumnType(dstCol)

		if srcType == schema.ByteStringFieldType {
			if dstType != schema.ByteStringFieldType {
				return nil, fmt.Errorf("cannot copy text column `%s` into %s column `%s`", entry.Column, dstType.String(), entry.As)
			}

			fields[i] = func(uint32) {
				dst.SetBytes(dstCol, src.Bytes(srcCol).Bytes())
			}
			continue
		}

		if dstType == schema.ByteStringFieldType {
			return nil, fmt.Errorf("cannot copy numeric column `%s` into text column `%s`", entry.Column, entry.As)
		}

		fields[i] = func(uint32) {
			dst.SetFloat(dstCol, src.Float(srcCol))
		}
	}

	return func(srcIndex uint32) {

		dst.Seek(result.AddRows(1))

		for _, field := range fields {
			field(srcIndex)
		}
	}, nil
}
