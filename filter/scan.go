package filter

import (
	"fmt"

	"github.com/mj3cheun/kruda/mem"
	"github.com/mj3cheun/kruda/table"
)

// CursorSlot is the u32 element of the indices region that holds the shared
// scan cursor. The second element of the region is reserved.
const CursorSlot = 0

// MinIndicesSize is the smallest accepted indices region: the cursor plus
// the reserved slot.
const MinIndicesSize = 8

// Scan drains the shared cursor in batches, testing rows in ascending order
// within each claim and handing matches to the writer. Safe to run from any
// number of workers over the same indices region, each claim [i, i+batch)
// is owned by exactly one of them.
func Scan(row *table.Row, test func() bool, write func(uint32), indices mem.Region, batchSize uint32) error {

	if batchSize == 0 {
		return fmt.Errorf("row batch size must be positive")
	}
	if indices.Size() < MinIndicesSize {
		return fmt.Errorf("indices region of %d bytes cannot hold the scan cursor", indices.Size())
	}

	rowCount := row.Table().RowCount()

	for {
		i := indices.AtomicAddU32(CursorSlot*4, batchSize)
		if i >= rowCount {
			return nil
		}

		end := i + batchSize
		if end > rowCount {
			end = rowCount
		}

		for r := i; r < end; r++ {
			row.Seek(r)
			if test() {
				write(r)
			}
		}
	}
}
