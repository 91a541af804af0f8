package worker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mj3cheun/kruda/mem"
	"golang.org/x/sync/errgroup"
)

type request struct {
	msg   Message
	reply chan Reply
}

// Worker is one executor goroutine owning at most one Processor. State
// lives inside the goroutine, the only way in is a message.
type Worker struct {
	id    int
	inbox chan request
}

func (w *Worker) run(done *sync.WaitGroup) {

	defer done.Done()

	slog.Info("worker started", "worker_id", w.id)
	defer slog.Info("worker stopped", "worker_id", w.id)

	var proc *Processor

	for req := range w.inbox {
		req.reply <- w.handle(&proc, req.msg)
	}
}

func (w *Worker) handle(proc **Processor, msg Message) Reply {

	switch msg.Type {

	case MessageInitialize:

		if *proc != nil {
			return Error(ErrAlreadyInitialized.Error())
		}

		var opts InitializeOptions
		if err := json.Unmarshal(msg.Options, &opts); err != nil {
			return Error(fmt.Sprintf("bad initialize options: %s", err.Error()))
		}

		created, createErr := NewProcessor(opts.Table)
		if createErr != nil {
			color.Red("worker %d failed to initialize: %s", w.id, createErr.Error())
			return Error(createErr.Error())
		}

		*proc = created
		return Success(nil)

	case MessageProcessFilters:

		if *proc == nil {
			return Error(ErrNotInitialized.Error())
		}

		var opts ProcessFiltersOptions
		if err := json.Unmarshal(msg.Options, &opts); err != nil {
			return Error(fmt.Sprintf("bad processFilters options: %s", err.Error()))
		}

		if processErr := (*proc).ProcessFilters(opts); processErr != nil {
			color.Red("worker %d filter run failed: %s", w.id, processErr.Error())
			return Error(processErr.Error())
		}

		return Success(nil)

	case MessageFetchMemory:

		if *proc == nil {
			return Error(ErrNotInitialized.Error())
		}

		buffer, fetchErr := (*proc).FetchMemory()
		if fetchErr != nil {
			return Error(fetchErr.Error())
		}

		*proc = nil
		return Success(buffer.Id().String())

	default:
		return Error(fmt.Sprintf("%s: `%s`", ErrUnknownMessage.Error(), msg.Type))
	}
}

// Send delivers one message and blocks for the reply.
func (w *Worker) Send(msg Message) Reply {

	reply := make(chan Reply, 1)
	w.inbox <- request{msg: msg, reply: reply}

	return <-reply
}

// Pool runs n workers and gives the coordinator broadcast semantics over
// them.
type Pool struct {
	workers []*Worker
	done    sync.WaitGroup
}

func StartPool(n int) *Pool {

	slog.Info("starting workers", "count", n)

	p := &Pool{
		workers: make([]*Worker, n),
	}

	for i := range p.workers {
		w := &Worker{
			id:    i,
			inbox: make(chan request),
		}
		p.workers[i] = w

		p.done.Add(1)
		go w.run(&p.done)
	}

	return p
}

func (p *Pool) Size() int {
	return len(p.workers)
}

func (p *Pool) Worker(i int) *Worker {
	return p.workers[i]
}

// broadcast sends the message to every worker concurrently and returns the
// first error reply.
func (p *Pool) broadcast(msg Message) error {

	var g errgroup.Group

	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			return w.Send(msg).Err()
		})
	}

	return g.Wait()
}

// Initialize hands every worker the source table descriptor.
func (p *Pool) Initialize(desc TableDescriptor) error {
	return p.broadcast(NewInitializeMessage(InitializeOptions{Table: desc}))
}

// ProcessFilters broadcasts a filter run and blocks until every worker has
// drained the shared cursor.
func (p *Pool) ProcessFilters(opts ProcessFiltersOptions) error {
	return p.broadcast(NewProcessFiltersMessage(opts))
}

// FetchMemory invalidates every worker's processor and returns the shared
// buffer to the coordinator, the sole releaser.
func (p *Pool) FetchMemory() (*mem.Buffer, error) {

	var bufferId uuid.UUID

	for _, w := range p.workers {

		reply := w.Send(NewFetchMemoryMessage())
		if replyErr := reply.Err(); replyErr != nil {
			return nil, replyErr
		}

		id, parseErr := uuid.Parse(reply.Data.(string))
		if parseErr != nil {
			return nil, fmt.Errorf("worker returned a bad buffer id: %s", parseErr.Error())
		}

		if bufferId != uuid.Nil && id != bufferId {
			return nil, fmt.Errorf("workers disagree on the fetched buffer: %s vs %s", bufferId, id)
		}
		bufferId = id
	}

	return mem.Lookup(bufferId)
}

// Close shuts the workers down. Pending sends must have completed.
func (p *Pool) Close() {

	for _, w := range p.workers {
		close(w.inbox)
	}

	p.done.Wait()
}
