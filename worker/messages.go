package worker

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mj3cheun/kruda/filter"
	"github.com/mj3cheun/kruda/mem"
)

type MessageType string

const (
	MessageInitialize     MessageType = "initialize"
	MessageProcessFilters MessageType = "processFilters"
	MessageFetchMemory    MessageType = "fetchMemory"
)

// MemoryBlockDescriptor locates a byte range inside a registered buffer.
// It is a locator, never a copy: resolving it yields a view over the same
// shared bytes the coordinator wrote.
type MemoryBlockDescriptor struct {
	Buffer  uuid.UUID `json:"buffer"`
	Address uint32    `json:"address"`
	Size    uint32    `json:"size"`
}

// TableDescriptor locates a table region, the header sits at its start.
type TableDescriptor = MemoryBlockDescriptor

func DescribeRegion(r mem.Region) MemoryBlockDescriptor {
	return MemoryBlockDescriptor{
		Buffer:  r.Buffer().Id(),
		Address: r.Address(),
		Size:    r.Size(),
	}
}

func (d MemoryBlockDescriptor) Resolve() (mem.Region, error) {

	buffer, lookupErr := mem.Lookup(d.Buffer)
	if lookupErr != nil {
		return mem.Region{}, lookupErr
	}

	return buffer.Region(d.Address, d.Size)
}

type InitializeOptions struct {
	Table TableDescriptor `json:"table"`
}

type ProcessFiltersOptions struct {
	Rules             []filter.Clause       `json:"rules"`
	Mode              filter.Mode           `json:"mode"`
	ResultDescription []filter.ResultEntry  `json:"resultDescription"`
	ResultTable       TableDescriptor       `json:"resultTable"`
	Indices           MemoryBlockDescriptor `json:"indices"`
	RowBatchSize      uint32                `json:"rowBatchSize"`
}

type Message struct {
	Type    MessageType     `json:"type"`
	Options json.RawMessage `json:"options,omitempty"`
}

func mustMessage(typ MessageType, options any) Message {

	raw, marshalErr := json.Marshal(options)
	if marshalErr != nil {
		panic(fmt.Sprintf("unable to encode %s options: %s", typ, marshalErr.Error()))
	}

	return Message{Type: typ, Options: raw}
}

func NewInitializeMessage(opts InitializeOptions) Message {
	return mustMessage(MessageInitialize, opts)
}

func NewProcessFiltersMessage(opts ProcessFiltersOptions) Message {
	return mustMessage(MessageProcessFilters, opts)
}

func NewFetchMemoryMessage() Message {
	return Message{Type: MessageFetchMemory}
}

type ReplyType string

const (
	ReplySuccess ReplyType = "success"
	ReplyError   ReplyType = "error"
)

type Reply struct {
	Type   ReplyType `json:"type"`
	Reason string    `json:"reason,omitempty"`
	Data   any       `json:"data,omitempty"`
}

func Success(data any) Reply {
	return Reply{Type: ReplySuccess, Data: data}
}

func Error(reason string) Reply {
	return Reply{Type: ReplyError, Reason: reason}
}

func (r Reply) Err() error {
	if r.Type == ReplyError {
		return fmt.Errorf("%s", r.Reason)
	}
	return nil
}
