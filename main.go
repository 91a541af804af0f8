package main

import (
	"bytes"
	"log"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/mj3cheun/kruda/filter"
	"github.com/mj3cheun/kruda/mem"
	"github.com/mj3cheun/kruda/schema"
	"github.com/mj3cheun/kruda/table"
	"github.com/mj3cheun/kruda/worker"
)

func main() {

	buffer, bufferErr := mem.NewSharedBuffer(1 << 20)
	if bufferErr != nil {
		log.Printf("shared mapping unavailable (%s), using heap buffer", bufferErr.Error())
		buffer = mem.NewBuffer(1 << 20)
	}

	sourceRegion, allocErr := buffer.Alloc(64 * 1024)
	if allocErr != nil {
		panic(allocErr)
	}

	source, sourceErr := table.EmptyFromColumns([]schema.ColumnDescriptor{
		{Name: "id", Type: schema.Uint32FieldType},
		{Name: "name", Type: schema.ByteStringFieldType, Size: 16},
	}, sourceRegion)
	if sourceErr != nil {
		panic(sourceErr)
	}

	names := []string{"Ada", "Bob", "Cid"}

	source.AddRows(uint32(len(names)))
	row := source.Row(0)
	for i, name := range names {
		row.Seek(uint32(i))
		row.SetValue(row.ColumnIndex("id"), i+1)
		row.SetValue(row.ColumnIndex("name"), name)
	}

	spew.Dump(source.Header().Columns())

	resultRegion, allocErr := buffer.Alloc(64 * 1024)
	if allocErr != nil {
		panic(allocErr)
	}

	result, resultErr := table.EmptyFromColumns([]schema.ColumnDescriptor{
		{Name: "id", Type: schema.Uint32FieldType},
		{Name: "", Type: schema.Uint32FieldType},
	}, resultRegion)
	if resultErr != nil {
		panic(resultErr)
	}

	indices, allocErr := buffer.Alloc(8)
	if allocErr != nil {
		panic(allocErr)
	}
	indices.PutU32(0, 0)

	pool := worker.StartPool(4)
	defer pool.Close()

	if initErr := pool.Initialize(worker.DescribeRegion(sourceRegion)); initErr != nil {
		color.Red("initialize failed: %s", initErr.Error())
		return
	}

	// id == 1 OR name contains "c"
	runErr := pool.ProcessFilters(worker.ProcessFiltersOptions{
		Rules: []filter.Clause{
			{{Field: "id", Operation: filter.OpEqual, Value: filter.NewValue("1")}},
			{{Field: "name", Operation: filter.OpContains, Value: filter.NewValue("c")}},
		},
		Mode: filter.DNF,
		ResultDescription: []filter.ResultEntry{
			{Column: "id", As: "id"},
			{Column: ""},
		},
		ResultTable:  worker.DescribeRegion(resultRegion),
		Indices:      worker.DescribeRegion(indices),
		RowBatchSize: 1,
	})
	if runErr != nil {
		color.Red("filter run failed: %s", runErr.Error())
		return
	}

	log.Printf("matched %d of %d rows", result.RowCount(), source.RowCount())

	idCol := result.Header().ColumnIndex("id")
	srcCol := result.Header().ColumnIndex("")

	result.ForEach(func(r *table.Row) {
		color.Green("  id=%v source_row=%v", r.Float(idCol), r.Float(srcCol))
	})

	fetched, fetchErr := pool.FetchMemory()
	if fetchErr != nil {
		color.Red("fetch memory failed: %s", fetchErr.Error())
		return
	}

	var snap bytes.Buffer
	if snapErr := mem.Snapshot(sourceRegion, &snap); snapErr != nil {
		color.Red("snapshot failed: %s", snapErr.Error())
		return
	}

	log.Printf("source region snapshot: %d bytes compressed from %d", snap.Len(), sourceRegion.Size())

	if releaseErr := fetched.Release(); releaseErr != nil {
		color.Red("release failed: %s", releaseErr.Error())
	}
}
