// Package command runs menu activations off the Bubble Tea event loop.
package command

import (
	"context"

	"github.com/atomicstack/menu-hud/internal/logging/events"
	tea "github.com/charmbracelet/bubbletea"
)

// Activator invokes the remote action registered under key.
type Activator func(ctx context.Context, key string) error

// Request encapsulates one activation.
type Request struct {
	Key   string
	Label string
	Run   Activator
}

// Result is delivered back to the HUD once a request has run.
type Result struct {
	Key   string
	Label string
	Err   error
}

// Bus coordinates the execution of activations.
type Bus struct{}

// New initialises a command bus instance.
func New() *Bus {
	return &Bus{}
}

// Execute wraps req into a Bubble Tea command that yields a Result.
func (b *Bus) Execute(ctx context.Context, req Request) tea.Cmd {
	events.Command.Queue(req.Key)
	return func() tea.Msg {
		if req.Run == nil {
			return Result{Key: req.Key, Label: req.Label}
		}
		err := req.Run(ctx, req.Key)
		events.Command.Result(req.Key, err)
		return Result{Key: req.Key, Label: req.Label, Err: err}
	}
}
