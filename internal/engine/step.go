package engine

import (
	"context"
)

// RunStep executes one engine transaction. It is invoked by the scheduler
// with the generation that was current when it was scheduled; a stale
// generation makes this call a pure no-op: any step observing a
// generation older than the engine's current one commits nothing.
func (e *Engine) RunStep(ctx context.Context, engineID string, generation int64) error {
	return e.tx.RunTransaction(ctx, func(ctx context.Context) error {
		doc, ok, err := e.engines.Get(ctx, engineID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEngineNotFound
		}
		if generation != doc.GenerationNumber || doc.State != Running {
			return nil // fenced: a stale or stopped generation commits nothing
		}

		now := e.clock.NowMs()
		stepWindow := now - doc.LastStepTs
		if stepWindow > maxStepMs {
			stepWindow = maxStepMs
		}
		if stepWindow < 0 {
			stepWindow = 0
		}
		deadline := doc.LastStepTs + stepWindow

		if err := e.drainInputs(ctx, engineID, deadline); err != nil {
			return err
		}
		// drainInputs advanced ProcessedInputNumber on its own copy of the
		// document; reload it so the write below keeps that progress.
		if doc, _, err = e.engines.Get(ctx, engineID); err != nil {
			return err
		}

		for t := doc.LastStepTs; t < deadline; t += tickMs {
			if err := e.world.Advance(ctx, engineID, t+tickMs); err != nil {
				return err
			}
		}

		if err := e.world.Flush(ctx, engineID); err != nil {
			return err
		}

		doc.LastStepTs = deadline
		doc.CurrentTime = deadline
		doc.ScheduledSelfTs = deadline + stepIntervalMs
		if err := e.engines.Replace(ctx, engineID, doc); err != nil {
			return err
		}

		return e.scheduleStep(ctx, engineID, generation, StepInterval)
	})
}

// drainInputs applies, in strictly ascending Number order, every
// pending input for engineID received no later than deadline, writing
// each input's ReturnValue exactly once.
func (e *Engine) drainInputs(ctx context.Context, engineID string, deadline int64) error {
	doc, ok, err := e.engines.Get(ctx, engineID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEngineNotFound
	}

	for {
		wantNumber := doc.ProcessedInputNumber + 1
		all, err := e.inputs.Query(ctx, func(_ string, in Input) bool {
			return in.EngineID == engineID && in.Number == wantNumber
		})
		if err != nil {
			return err
		}
		if len(all) == 0 {
			return nil // no input with that number yet: nothing more to drain
		}
		var id string
		var in Input
		for k, v := range all {
			id, in = k, v
		}
		if in.ReceivedTs > deadline {
			return nil // not yet within this step's window
		}

		rv, err := e.world.ApplyInput(ctx, engineID, in)
		if err != nil {
			return err // transaction-fatal; the whole step retries
		}
		in.ReturnValue = &rv
		if err := e.inputs.Replace(ctx, id, in); err != nil {
			return err
		}

		doc.ProcessedInputNumber = wantNumber
		if err := e.engines.Replace(ctx, engineID, doc); err != nil {
			return err
		}
	}
}
