package filter

import (
	"sync"
	"testing"

	"github.com/mj3cheun/kruda/schema"
	"github.com/mj3cheun/kruda/table"
)

func resultTable(t *testing.T) *table.Table {
	t.Helper()

	tab, buildErr := table.EmptyFromColumns([]schema.ColumnDescriptor{
		{Name: "id", Type: schema.Uint32FieldType},
		{Name: "", Type: schema.Uint32FieldType},
	}, testRegion(t, 64*1024))
	if buildErr != nil {
		t.Fatalf("unexpected error %v", buildErr)
	}

	return tab
}

// runScan drains one shared cursor from the given number of goroutines,
// each with its own row cursor and compiled callables, the way workers do.
func runScan(t *testing.T, src *table.Table, expr Expression, desc []ResultEntry, goroutines int, batchSize uint32) *table.Table {
	t.Helper()

	result := resultTable(t)

	indices := testRegion(t, 8)
	indices.PutU32(0, 0)

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			row := src.Cursor()

			test, compileErr := CompileTester(expr, row)
			if compileErr != nil {
				errs <- compileErr
				return
			}

			write, writerErr := CompileWriter(desc, row, result)
			if writerErr != nil {
				errs <- writerErr
				return
			}

			errs <- Scan(row, test, write, indices, batchSize)
		}()
	}

	wg.Wait()
	close(errs)

	for scanErr := range errs {
		if scanErr != nil {
			t.Fatalf("unexpected error %v", scanErr)
		}
	}

	return result
}

func resultBag(result *table.Table) map[float64]int {

	idCol := result.Header().ColumnIndex("id")

	bag := map[float64]int{}
	result.ForEach(func(r *table.Row) {
		bag[r.Float(idCol)]++
	})

	return bag
}

func TestScanFindsExpectedBag(t *testing.T) {

	src := sequenceTable(t, 1000)

	expr := Expression{Mode: DNF, Clauses: []Clause{
		{{Field: "id", Operation: OpIn, Value: NewValueList("7", "42", "999", "1000")}},
	}}
	desc := []ResultEntry{{Column: "id", As: "id"}, {Column: ""}}

	result := runScan(t, src, expr, desc, 4, 16)

	if result.RowCount() != 3 {
		t.Errorf("Expected 3 but got %d", result.RowCount())
	}

	bag := resultBag(result)
	for _, id := range []float64{7, 42, 999} {
		if bag[id] != 1 {
			t.Errorf("Expected id %v exactly once but got %d", id, bag[id])
		}
	}
}

func TestScanBagIndependentOfWorkersAndBatches(t *testing.T) {

	src := sequenceTable(t, 1000)

	expr := Expression{Mode: DNF, Clauses: []Clause{
		{{Field: "id", Operation: OpLessThan, Value: NewValue("500")}},
	}}
	desc := []ResultEntry{{Column: "id", As: "id"}}

	reference := resultBag(runScan(t, src, expr, desc, 1, 1))
	if len(reference) != 500 {
		t.Fatalf("Expected 500 but got %d", len(reference))
	}

	for _, goroutines := range []int{1, 4, 16} {
		for _, batch := range []uint32{1, 7, 128} {

			bag := resultBag(runScan(t, src, expr, desc, goroutines, batch))

			if len(bag) != len(reference) {
				t.Errorf("goroutines=%d batch=%d: Expected %d matches but got %d", goroutines, batch, len(reference), len(bag))
			}
			for id, count := range reference {
				if bag[id] != count {
					t.Errorf("goroutines=%d batch=%d: Expected id %v count %d but got %d", goroutines, batch, id, count, bag[id])
				}
			}
		}
	}
}

func TestScanWritesRowIndex(t *testing.T) {

	src := namedTable(t)

	expr := Expression{Mode: DNF, Clauses: []Clause{
		{{Field: "name", Operation: OpContains, Value: NewValue("c")}},
	}}
	desc := []ResultEntry{{Column: "id", As: "id"}, {Column: ""}}

	result := runScan(t, src, expr, desc, 2, 1)

	if result.RowCount() != 1 {
		t.Fatalf("Expected 1 but got %d", result.RowCount())
	}

	row := result.Row(0)
	if got := row.Float(row.ColumnIndex("id")); got != 3 {
		t.Errorf("Expected 3 but got %v", got)
	}
	if got := row.Float(row.ColumnIndex("")); got != 2 {
		t.Errorf("Expected source row 2 but got %v", got)
	}
}

func TestScanRejectsBadInputs(t *testing.T) {

	src := namedTable(t)
	row := src.Cursor()

	test, _ := CompileTester(Expression{}, row)

	indices := testRegion(t, 8)
	indices.PutU32(0, 0)

	if scanErr := Scan(row, test, func(uint32) {}, indices, 0); scanErr == nil {
		t.Errorf("Expected zero batch size to be rejected")
	}

	short := testRegion(t, 16)
	shortIndices, _ := short.SubRegion(0, 4)
	if scanErr := Scan(row, test, func(uint32) {}, shortIndices, 1); scanErr == nil {
		t.Errorf("Expected undersized indices region to be rejected")
	}
}

func TestWriterRejectsBadDescription(t *testing.T) {

	src := namedTable(t)
	result := resultTable(t)

	if _, err := CompileWriter([]ResultEntry{{Column: "missing", As: "id"}}, src.Cursor(), result); err == nil {
		t.Errorf("Expected unknown source column error")
	}
	if _, err := CompileWriter([]ResultEntry{{Column: "id", As: "missing"}}, src.Cursor(), result); err == nil {
		t.Errorf("Expected unknown result column error")
	}
	if _, err := CompileWriter([]ResultEntry{{Column: "name", As: "id"}}, src.Cursor(), result); err == nil {
		t.Errorf("Expected text to numeric copy error")
	}
}
