package bridge

import (
	"context"
	"sync"
)

// PlaybackState is what the status line needs to know about the current run.
type PlaybackState struct {
	Active    bool
	Paused    bool
	Message   string // text of the pending wait
	Seq       uint64 // number of the latest wait
	RunID     string
	Algorithm string
}

type playback struct {
	mu     sync.Mutex
	cond   *sync.Cond
	state  PlaybackState
	cancel context.CancelFunc
}

// State returns a copy of the playback state.
func (b *Bridge) State() PlaybackState {
	b.play.mu.Lock()
	defer b.play.mu.Unlock()
	return b.play.state
}

// Busy reports whether a run holds the single-flight slot.
func (b *Bridge) Busy() bool {
	return b.State().Active
}

// Wait pauses the calling algorithm until Continue, ContinueWait for this
// wait's sequence number, or ctx is done. Observers see the wait before the
// caller blocks, so an observer may continue it synchronously.
func (b *Bridge) Wait(ctx context.Context, message string) error {
	p := &b.play
	p.mu.Lock()
	p.state.Seq++
	seq := p.state.Seq
	p.state.Paused = true
	p.state.Message = message
	p.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.cond.Broadcast()
	})
	defer stop()

	b.waits.Add(ctx, 1)
	_ = b.dispatch(Command{Kind: CmdWait, Seq: seq, Text: message, RunID: b.State().RunID})

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.state.Paused && p.state.Seq == seq && ctx.Err() == nil {
		p.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		if p.state.Seq == seq {
			p.state.Paused = false
			p.state.Message = ""
		}
		return err
	}
	return nil
}

// Continue resumes the pending wait. It reports false, and does nothing,
// when nothing is paused.
func (b *Bridge) Continue() bool {
	return b.resume(func(uint64) bool { return true })
}

// ContinueWait resumes only the wait numbered seq.
func (b *Bridge) ContinueWait(seq uint64) bool {
	return b.resume(func(cur uint64) bool { return cur == seq })
}

func (b *Bridge) resume(match func(uint64) bool) bool {
	p := &b.play
	p.mu.Lock()
	if !p.state.Paused || !match(p.state.Seq) {
		p.mu.Unlock()
		return false
	}
	seq := p.state.Seq
	p.state.Paused = false
	p.state.Message = ""
	p.cond.Broadcast()
	p.mu.Unlock()

	_ = b.dispatch(Command{Kind: CmdResume, Seq: seq})
	return true
}

// Abort cancels the running algorithm. A pending wait returns at once.
func (b *Bridge) Abort() bool {
	b.play.mu.Lock()
	cancel := b.play.cancel
	b.play.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}
