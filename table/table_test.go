package table

import (
	"sync"
	"testing"

	"github.com/mj3cheun/kruda/mem"
	"github.com/mj3cheun/kruda/schema"
)

func testRegion(t *testing.T, size uint32) mem.Region {
	t.Helper()

	buffer := mem.NewBuffer(size)
	t.Cleanup(func() { buffer.Release() })

	region, allocErr := buffer.Alloc(size)
	if allocErr != nil {
		t.Fatalf("unexpected error %v", allocErr)
	}

	return region
}

func namedTable(t *testing.T) *Table {
	t.Helper()

	tab, buildErr := EmptyFromColumns([]schema.ColumnDescriptor{
		{Name: "id", Type: schema.Uint32FieldType},
		{Name: "name", Type: schema.ByteStringFieldType, Size: 16},
	}, testRegion(t, 64*1024))
	if buildErr != nil {
		t.Fatalf("unexpected error %v", buildErr)
	}

	return tab
}

func fillNamedTable(t *testing.T, tab *Table) {
	t.Helper()

	rows := []struct {
		id   int
		name string
	}{
		{1, "Ada"},
		{2, "Bob"},
		{3, "Cid"},
	}

	tab.AddRows(uint32(len(rows)))

	row := tab.Row(0)
	for i, r := range rows {
		row.Seek(uint32(i))

		if setErr := row.SetValue(row.ColumnIndex("id"), r.id); setErr != nil {
			t.Fatalf("unexpected error %v", setErr)
		}
		if setErr := row.SetValue(row.ColumnIndex("name"), r.name); setErr != nil {
			t.Fatalf("unexpected error %v", setErr)
		}
	}
}

func TestRoundTripRows(t *testing.T) {

	tab := namedTable(t)
	fillNamedTable(t, tab)

	if tab.RowCount() != 3 {
		t.Errorf("Expected 3 but got %d", tab.RowCount())
	}

	row := tab.Row(1)
	if got := row.Value(row.ColumnIndex("name")); got != "Bob" {
		t.Errorf("Expected Bob but got %v", got)
	}
	if got := row.Float(row.ColumnIndex("id")); got != 2 {
		t.Errorf("Expected 2 but got %v", got)
	}

	binary := tab.BinaryRow(2)
	bs, ok := binary.Value(binary.ColumnIndex("name")).(schema.ByteString)
	if !ok {
		t.Fatalf("Expected a ByteString view from a binary row")
	}
	if bs.String() != "Cid" {
		t.Errorf("Expected Cid but got %s", bs.String())
	}
}

func TestRoundTripAllTypes(t *testing.T) {

	tab, buildErr := EmptyFromColumns([]schema.ColumnDescriptor{
		{Name: "i8", Type: schema.Int8FieldType},
		{Name: "u8", Type: schema.Uint8FieldType},
		{Name: "i16", Type: schema.Int16FieldType},
		{Name: "u16", Type: schema.Uint16FieldType},
		{Name: "i32", Type: schema.Int32FieldType},
		{Name: "u32", Type: schema.Uint32FieldType},
		{Name: "f32", Type: schema.Float32FieldType},
		{Name: "s", Type: schema.ByteStringFieldType, Size: 8},
	}, testRegion(t, 4096))
	if buildErr != nil {
		t.Fatalf("unexpected error %v", buildErr)
	}

	tab.AddRows(1)
	row := tab.Row(0)

	numeric := map[string]float64{
		"i8":  -100,
		"u8":  200,
		"i16": -30000,
		"u16": 60000,
		"i32": -2000000000,
		"u32": 4000000000,
		"f32": 1.5,
	}

	for name, v := range numeric {
		row.SetFloat(row.ColumnIndex(name), v)
	}
	row.SetBytes(row.ColumnIndex("s"), []byte("abc"))

	for name, v := range numeric {
		if got := row.Float(row.ColumnIndex(name)); got != v {
			t.Errorf("column %s: Expected %v but got %v", name, v, got)
		}
	}
	if got := row.Bytes(row.ColumnIndex("s")).String(); got != "abc" {
		t.Errorf("Expected abc but got %s", got)
	}
}

func TestAtomicGrowthPartitions(t *testing.T) {

	tab, buildErr := EmptyFromColumns([]schema.ColumnDescriptor{
		{Name: "id", Type: schema.Uint32FieldType},
	}, testRegion(t, 64*1024))
	if buildErr != nil {
		t.Fatalf("unexpected error %v", buildErr)
	}

	const workers = 8
	const perWorker = 50
	const chunk = 2

	claims := make(chan uint32, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				claims <- tab.AddRows(chunk)
			}
		}()
	}

	wg.Wait()
	close(claims)

	covered := map[uint32]bool{}
	for old := range claims {
		for i := old; i < old+chunk; i++ {
			if covered[i] {
				t.Errorf("row slot %d claimed twice", i)
			}
			covered[i] = true
		}
	}

	final := tab.RowCount()
	if final != workers*perWorker*chunk {
		t.Errorf("Expected %d but got %d", workers*perWorker*chunk, final)
	}

	for i := uint32(0); i < final; i++ {
		if !covered[i] {
			t.Errorf("row slot %d never claimed", i)
		}
	}
}

func TestForEachVisitsInOrder(t *testing.T) {

	tab := namedTable(t)
	fillNamedTable(t, tab)

	idCol := tab.Header().ColumnIndex("id")

	var seen []float64
	tab.ForEach(func(r *Row) {
		seen = append(seen, r.Float(idCol))
	})

	if len(seen) != 3 {
		t.Fatalf("Expected 3 but got %d", len(seen))
	}
	for i, v := range []float64{1, 2, 3} {
		if seen[i] != v {
			t.Errorf("Expected %v at %d but got %v", v, i, seen[i])
		}
	}
}

func TestRowBoundsCheck(t *testing.T) {

	tab := namedTable(t)
	fillNamedTable(t, tab)

	defer func() {
		if recover() == nil {
			t.Errorf("Expected out of bounds panic but got none")
		}
	}()

	tab.Row(3)
}

func TestReopenExistingRegion(t *testing.T) {

	tab := namedTable(t)
	fillNamedTable(t, tab)

	reopened, openErr := New(tab.Region())
	if openErr != nil {
		t.Fatalf("unexpected error %v", openErr)
	}

	if reopened.RowCount() != 3 {
		t.Errorf("Expected 3 but got %d", reopened.RowCount())
	}

	row := reopened.Row(0)
	if got := row.Value(row.ColumnIndex("name")); got != "Ada" {
		t.Errorf("Expected Ada but got %v", got)
	}
}

func TestDestroyInvalidates(t *testing.T) {

	buffer := mem.NewBuffer(64 * 1024)

	region, _ := buffer.Alloc(32 * 1024)
	tab, buildErr := EmptyFromColumns([]schema.ColumnDescriptor{
		{Name: "id", Type: schema.Uint32FieldType},
	}, region)
	if buildErr != nil {
		t.Fatalf("unexpected error %v", buildErr)
	}

	if destroyErr := tab.Destroy(); destroyErr != nil {
		t.Fatalf("unexpected error %v", destroyErr)
	}

	if tab.Region().Valid() {
		t.Errorf("Expected destroyed table region to be invalid")
	}
	if _, lookupErr := mem.Lookup(buffer.Id()); lookupErr == nil {
		t.Errorf("Expected buffer to be unregistered after destroy")
	}
}
