package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Attribute is one value pushed into the runtime before a run.
type Attribute struct {
	Target  graph.Target
	Keyword script.Keyword
	Value   float64
}

// Launch describes one run.
type Launch struct {
	Algorithm  string
	Args       script.Args
	Clear      []script.Keyword // dropped from every target before Attributes are pushed
	Attributes []Attribute
}

// Run is a launched algorithm.
type Run struct {
	ID        string
	Algorithm string
	done      chan struct{}
	err       error
}

// Done is closed once the run has finished and released its slot.
func (r *Run) Done() <-chan struct{} { return r.done }

// Err is the run's outcome. Valid after Done.
func (r *Run) Err() error {
	<-r.done
	return r.err
}

// Launch takes the single-flight slot, prepares the runtime and starts the
// algorithm on its own goroutine. Attributes are in the runtime when Launch
// returns.
func (b *Bridge) Launch(ctx context.Context, l Launch) (*Run, error) {
	name := strings.TrimPrefix(strings.TrimSpace(l.Algorithm), "run-")
	set, ok := b.rt.Settings(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", script.ErrUnknownProcedure, name)
	}
	if !set.Enabled {
		return nil, fmt.Errorf("%w: %s", script.ErrDisabled, name)
	}
	if !b.sem.TryAcquire(1) {
		return nil, ErrRunActive
	}

	run := &Run{ID: uuid.NewString(), Algorithm: name, done: make(chan struct{})}
	runCtx, cancel := context.WithCancel(ctx)

	b.gestureMu.Lock()
	// Nothing is touched until every target is known to exist.
	for _, a := range l.Attributes {
		if err := b.rt.CheckAttribute(a.Target, a.Keyword); err != nil {
			b.gestureMu.Unlock()
			cancel()
			b.sem.Release(1)
			return nil, fmt.Errorf("failed to push %s on %s: %w", a.Keyword, a.Target, err)
		}
	}

	b.play.mu.Lock()
	b.play.state = PlaybackState{Active: true, RunID: run.ID, Algorithm: name, Seq: b.play.state.Seq}
	b.play.cancel = cancel
	b.play.mu.Unlock()

	if b.cfg.CleanBeforeRun {
		_ = b.dispatch(Command{Kind: CmdCleanVisuals})
	}
	if len(l.Clear) > 0 {
		b.rt.ClearAttributes(l.Clear...)
	}
	for _, a := range l.Attributes {
		if err := b.rt.AddAttribute(a.Target, a.Keyword, a.Value); err != nil {
			b.gestureMu.Unlock()
			b.finish(cancel)
			return nil, fmt.Errorf("failed to push %s on %s: %w", a.Keyword, a.Target, err)
		}
	}
	// The run works on the graph as it is now; later gestures are not in it.
	snap := b.rt.Snapshot()
	b.gestureMu.Unlock()

	b.logger.Info("Run started", "run_id", run.ID, "algorithm", name)
	_ = b.dispatch(Command{Kind: CmdRunStarted, RunID: run.ID, Algorithm: name})

	go b.execute(runCtx, cancel, run, snap, l.Args)
	return run, nil
}

func (b *Bridge) execute(ctx context.Context, cancel context.CancelFunc, run *Run, snap *script.Snapshot, args script.Args) {
	ctx, span := b.tracer.Start(ctx, "bridge.run", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("algorithm", run.Algorithm),
	))

	err := b.rt.InvokeSnapshot(ctx, run.Algorithm, snap, args)
	status := "ok"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Warn("Run failed", "run_id", run.ID, "algorithm", run.Algorithm, "error", err)
	} else {
		b.logger.Info("Run finished", "run_id", run.ID, "algorithm", run.Algorithm)
	}
	span.End()
	b.runs.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("algorithm", run.Algorithm),
		attribute.String("status", status),
	))

	run.err = err
	b.finish(cancel)
	_ = b.dispatch(Command{Kind: CmdRunFinished, RunID: run.ID, Algorithm: run.Algorithm, Err: err})
	close(run.done)
}

// finish clears the playback state and frees the slot.
func (b *Bridge) finish(cancel context.CancelFunc) {
	b.play.mu.Lock()
	b.play.state = PlaybackState{Seq: b.play.state.Seq}
	b.play.cancel = nil
	b.play.cond.Broadcast()
	b.play.mu.Unlock()
	cancel()
	b.sem.Release(1)
}
