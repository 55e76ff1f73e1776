package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/aitown/internal/ids"
	"github.com/wricardo/aitown/internal/store"
)

// Clock is the minimal time collaborator the engine needs (the step
// loop's "clock()"); internal/engineclock.Clock satisfies it.
type Clock interface {
	NowMs() int64
}

// World is the per-tick rules collaborator, implemented by
// internal/aitown. The engine is deliberately ignorant of AiTown's
// internal tables; it only needs these choke points.
type World interface {
	// ApplyInput applies one drained input's effect to the world and
	// returns its ReturnValue. ApplyInput must be total: it never
	// returns a Go error for domain failures (those become
	// ReturnError), only for transaction-fatal problems.
	ApplyInput(ctx context.Context, engineID string, in Input) (ReturnValue, error)
	// Advance moves simulated time forward by one Tick.
	Advance(ctx context.Context, engineID string, now int64) error
	// Flush persists every dirty game table and historical sample
	// buffer touched since the last flush, as part of the same
	// transaction as the Engine/Input writes.
	Flush(ctx context.Context, engineID string) error
}

// Engine orchestrates the input queue and tick loop for every world
// sharing this process. Exactly one engine document exists per world;
// Engine itself is stateless except for its collaborators, so one
// Engine value can drive many worlds concurrently.
type Engine struct {
	engines store.Collection[Doc]
	inputs  store.Collection[Input]
	tx      store.Transactor
	sched   store.Scheduler
	clock   Clock
	world   World
	log     *log.Logger
}

// New creates an Engine bound to its store collaborators and a World
// rules implementation.
func New(engines store.Collection[Doc], inputs store.Collection[Input], tx store.Transactor, sched store.Scheduler, clock Clock, world World, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		engines: engines,
		inputs:  inputs,
		tx:      tx,
		sched:   sched,
		clock:   clock,
		world:   world,
		log:     logger,
	}
}

// Create registers a new, initially stopped engine for a world.
func (e *Engine) Create(ctx context.Context, engineID string) error {
	return e.engines.Insert(ctx, engineID, Doc{ID: engineID, State: Stopped})
}

// Start transitions a stopped engine to running and schedules its first
// step to run immediately (delay 0).
func (e *Engine) Start(ctx context.Context, engineID string) error {
	var retErr error
	err := e.tx.RunTransaction(ctx, func(ctx context.Context) error {
		doc, ok, err := e.engines.Get(ctx, engineID)
		if err != nil {
			return err
		}
		if !ok {
			retErr = ErrEngineNotFound
			return nil
		}
		if doc.State == Running {
			retErr = ErrEngineNotStopped
			return nil
		}
		doc.State = Running
		doc.GenerationNumber++
		now := e.clock.NowMs()
		doc.ScheduledSelfTs = now // T+ε: the first step runs almost immediately
		doc.LastStepTs = now
		if err := e.engines.Replace(ctx, engineID, doc); err != nil {
			return err
		}
		return e.scheduleStep(ctx, engineID, doc.GenerationNumber, 0)
	})
	if err != nil {
		return err
	}
	return retErr
}

// Stop transitions a running engine to stopped. Any already-scheduled
// step discovers the state change via the generation fence and exits
// without mutation.
func (e *Engine) Stop(ctx context.Context, engineID string) error {
	var retErr error
	err := e.tx.RunTransaction(ctx, func(ctx context.Context) error {
		doc, ok, err := e.engines.Get(ctx, engineID)
		if err != nil {
			return err
		}
		if !ok {
			retErr = ErrEngineNotFound
			return nil
		}
		doc.State = Stopped
		doc.ScheduledSelfTs = 0
		return e.engines.Replace(ctx, engineID, doc)
	})
	if err != nil {
		return err
	}
	return retErr
}

// Kick bumps the generation and reschedules immediately, cancelling the
// effect of the prior scheduled step. Kick is a
// no-op (but not an error) on a stopped engine, which simply queues
// inputs for whenever it next starts. InsertInput calls Kick only for a
// running engine whose next step is farther away than InputDelay.
func (e *Engine) Kick(ctx context.Context, engineID string) error {
	var retErr error
	err := e.tx.RunTransaction(ctx, func(ctx context.Context) error {
		doc, ok, err := e.engines.Get(ctx, engineID)
		if err != nil {
			return err
		}
		if !ok {
			retErr = ErrEngineNotFound
			return nil
		}
		if doc.State != Running {
			return nil
		}
		doc.GenerationNumber++
		now := e.clock.NowMs()
		doc.ScheduledSelfTs = now
		if err := e.engines.Replace(ctx, engineID, doc); err != nil {
			return err
		}
		return e.scheduleStep(ctx, engineID, doc.GenerationNumber, 0)
	})
	if err != nil {
		return err
	}
	return retErr
}

func (e *Engine) scheduleStep(ctx context.Context, engineID string, generation int64, delay time.Duration) error {
	return e.sched.RunAfter(ctx, delay, func(ctx context.Context) error {
		if err := e.RunStep(ctx, engineID, generation); err != nil {
			e.log.Error("engine step failed", "engine", engineID, "generation", generation, "err", err)
		}
		return nil
	})
}

// InsertInput allocates the next input number for engineID and stores
// the input record. If the engine is running and its next scheduled step
// is farther away than InputDelay, InsertInput kicks it, bounding input
// latency.
func (e *Engine) InsertInput(ctx context.Context, engineID, name string, args []byte) (string, int64, error) {
	inputID := ids.New("input")
	var number int64
	var shouldKick bool

	err := e.tx.RunTransaction(ctx, func(ctx context.Context) error {
		existing, err := e.inputs.Query(ctx, func(_ string, in Input) bool { return in.EngineID == engineID })
		if err != nil {
			return err
		}
		number = 1
		for _, in := range existing {
			if in.Number >= number {
				number = in.Number + 1
			}
		}

		now := e.clock.NowMs()
		if err := e.inputs.Insert(ctx, inputID, Input{
			ID:         inputID,
			EngineID:   engineID,
			Number:     number,
			Name:       name,
			Args:       args,
			ReceivedTs: now,
		}); err != nil {
			return err
		}

		doc, ok, err := e.engines.Get(ctx, engineID)
		if err != nil {
			return err
		}
		if ok && doc.State == Running && doc.ScheduledSelfTs-now > inputDelayMs {
			shouldKick = true
		}
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	if shouldKick {
		if err := e.Kick(ctx, engineID); err != nil {
			return "", 0, fmt.Errorf("engine: kick after insertInput: %w", err)
		}
	}
	return inputID, number, nil
}

// InsertInputs submits a batch of inputs in order, used by the MCP
// transport when an agent wants to queue a short plan. Each input goes
// through its own InsertInput call and so its own transaction; the batch
// is not atomic. On an error it returns the ids of the inputs already
// inserted, which stay queued.
func (e *Engine) InsertInputs(ctx context.Context, engineID string, names []string, argsList [][]byte) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		var args []byte
		if i < len(argsList) {
			args = argsList[i]
		}
		id, _, err := e.InsertInput(ctx, engineID, name, args)
		if err != nil {
			return out[:i], err
		}
		out[i] = id
	}
	return out, nil
}

// InputStatus returns the recorded outcome of an input, or nil if still
// pending.
func (e *Engine) InputStatus(ctx context.Context, inputID string) (*ReturnValue, error) {
	in, ok, err := e.inputs.Get(ctx, inputID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("engine: input %q not found", inputID)
	}
	return in.ReturnValue, nil
}

// EngineStatus returns the current Engine document for a client's
// subscription feed.
func (e *Engine) EngineStatus(ctx context.Context, engineID string) (Doc, error) {
	doc, ok, err := e.engines.Get(ctx, engineID)
	if err != nil {
		return Doc{}, err
	}
	if !ok {
		return Doc{}, ErrEngineNotFound
	}
	return doc, nil
}

// RecentInputs returns up to n most-recently-received inputs for a
// world's engine, most recent first — used by clients and by the agent
// loop when building LLM prompt context.
func (e *Engine) RecentInputs(ctx context.Context, engineID string, n int) ([]Input, error) {
	all, err := e.inputs.Query(ctx, func(_ string, in Input) bool { return in.EngineID == engineID })
	if err != nil {
		return nil, err
	}
	out := make([]Input, 0, len(all))
	for _, in := range all {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
