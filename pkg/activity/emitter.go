package activity

import "context"

// Config controls whether activity emission is on.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter delivers submission activity to the configured hooks.
type Emitter struct {
	hooks   Hooks
	channel string
	enabled bool
}

// NewEmitter builds an emitter. Without hooks the emitter reports disabled
// and every Emit is a no-op.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{
		hooks:   hooks,
		channel: channel,
		enabled: cfg.Enabled && len(hooks) > 0,
	}
}

// Enabled reports whether events will be delivered.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit delivers the event to every hook.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if !e.Enabled() {
		return nil
	}
	if evt.Channel == "" {
		evt.Channel = e.channel
	}
	return e.hooks.Notify(ctx, evt)
}
