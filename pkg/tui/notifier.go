package tui

import (
	"context"
	"sync"

	"github.com/DrSkyle/graphstep/pkg/bridge"
	tea "github.com/charmbracelet/bubbletea"
)

// commandMsg carries a bridge command the model reacts to.
type commandMsg bridge.Command

// redrawMsg asks for a repaint after visual commands.
type redrawMsg struct{}

// Notifier is the bridge observer feeding a tea.Program. Notify never
// blocks: commands the model acts on are queued in full, visual commands
// collapse into a single redraw.
type Notifier struct {
	mu      sync.Mutex
	pending []bridge.Command
	dirty   bool
	wake    chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{wake: make(chan struct{}, 1)}
}

func keep(k bridge.CommandKind) bool {
	switch k {
	case bridge.CmdWait, bridge.CmdResume, bridge.CmdShowMessage,
		bridge.CmdRunStarted, bridge.CmdRunFinished, bridge.CmdSetMode:
		return true
	}
	return false
}

func (n *Notifier) Notify(c bridge.Command) {
	n.mu.Lock()
	if keep(c.Kind) {
		n.pending = append(n.pending, c)
	} else {
		n.dirty = true
	}
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *Notifier) drain() ([]bridge.Command, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	cmds, dirty := n.pending, n.dirty
	n.pending, n.dirty = nil, false
	return cmds, dirty
}

// Run delivers queued commands to send until ctx is done. Pass
// (*tea.Program).Send.
func (n *Notifier) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.wake:
		}
		cmds, dirty := n.drain()
		for _, c := range cmds {
			send(commandMsg(c))
		}
		if dirty {
			send(redrawMsg{})
		}
	}
}
