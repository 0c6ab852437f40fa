// Package cmd is a transport-agnostic command core. A command has a name, a
// description and Run(ctx, invocation); adapters (Discord slash commands,
// the CLI) decide how it is registered and what Data carries.
package cmd

import "context"

// Invocation is what an adapter hands to a command. Data holds the adapter's
// own context, for example the Discord session and interaction.
type Invocation struct {
	Args []string
	Data any
}

// Command is identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Middleware wraps a command.
type Middleware func(Command) Command

// Apply applies middlewares in order; the last one ends up outermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
