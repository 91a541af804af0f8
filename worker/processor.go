package worker

import (
	"errors"
	"fmt"

	"github.com/mj3cheun/kruda/filter"
	"github.com/mj3cheun/kruda/mem"
	"github.com/mj3cheun/kruda/table"
)

var (
	ErrAlreadyInitialized = errors.New("processor already initialized")
	ErrNotInitialized     = errors.New("processor not initialized")
	ErrUnknownMessage     = errors.New("unknown message type")
	ErrDetached           = errors.New("processor memory was fetched")
)

// Processor is a worker's view over one shared source table. Each worker
// owns at most one, built on initialize and torn down by fetchMemory.
type Processor struct {
	buffer *mem.Buffer
	source *table.Table
	row    *table.Row
}

func NewProcessor(desc TableDescriptor) (*Processor, error) {

	region, resolveErr := desc.Resolve()
	if resolveErr != nil {
		return nil, fmt.Errorf("unable to resolve table descriptor: %s", resolveErr.Error())
	}

	source, tableErr := table.New(region)
	if tableErr != nil {
		return nil, fmt.Errorf("unable to read table header: %s", tableErr.Error())
	}

	return &Processor{
		buffer: region.Buffer(),
		source: source,
		row:    source.Cursor(),
	}, nil
}

// ProcessFilters compiles the expression and the result writer against the
// shared cursor row and runs the batched scan to completion.
func (p *Processor) ProcessFilters(opts ProcessFiltersOptions) error {

	if p.source == nil {
		return ErrDetached
	}

	resultRegion, resultErr := opts.ResultTable.Resolve()
	if resultErr != nil {
		return fmt.Errorf("unable to resolve result table: %s", resultErr.Error())
	}

	resultTable, resultTableErr := table.New(resultRegion)
	if resultTableErr != nil {
		return fmt.Errorf("unable to read result table header: %s", resultTableErr.Error())
	}

	indices, indicesErr := opts.Indices.Resolve()
	if indicesErr != nil {
		return fmt.Errorf("unable to resolve indices region: %s", indicesErr.Error())
	}

	expr := filter.Expression{Mode: opts.Mode, Clauses: opts.Rules}

	test, compileErr := filter.CompileTester(expr, p.row)
	if compileErr != nil {
		return fmt.Errorf("unable to compile filter expression: %s", compileErr.Error())
	}

	write, writerErr := filter.CompileWriter(opts.ResultDescription, p.row, resultTable)
	if writerErr != nil {
		return fmt.Errorf("unable to compile result writer: %s", writerErr.Error())
	}

	return filter.Scan(p.row, test, write, indices, opts.RowBatchSize)
}

// FetchMemory surrenders the underlying buffer to the caller and
// invalidates the processor. Terminal.
func (p *Processor) FetchMemory() (*mem.Buffer, error) {

	if p.source == nil {
		return nil, ErrDetached
	}

	buffer := p.buffer

	p.buffer = nil
	p.source = nil
	p.row = nil

	return buffer, nil
}
