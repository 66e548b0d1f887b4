package volknob

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// display strings shown on the knob's screen. The host renders whatever we
// return, so these stay short
const (
	displayMuted       = "🔇 MUTED"
	displayProcessSink = "App"
	displayUnsupported = "N/A"
	displayNoAppName   = "No app"
	displayNotFound    = "Not found"
	displayNotPlaying  = "No audio"
	displayNoTool      = "No wpctl"
	displayError       = "Error"
)

// Dispatcher maps host events (knob appeared, rotate, press, absolute set)
// to resolver and volume-control calls, and converts every outcome into a
// short user-visible status string. Errors never escape this boundary and
// nothing is retried - the next knob event re-resolves from scratch, which
// heals transient staleness on its own.
type Dispatcher struct {
	logger   *zap.SugaredLogger
	notifier Notifier
	resolver *Resolver
	volume   *VolumeControl

	// nag about the missing binary once, not on every knob tick
	missingToolOnce sync.Once
}

// NewDispatcher creates a Dispatcher over the given resolver and volume control.
func NewDispatcher(logger *zap.SugaredLogger, notifier Notifier, resolver *Resolver, volume *VolumeControl) *Dispatcher {
	logger = logger.Named("dispatch")

	d := &Dispatcher{
		logger:   logger,
		notifier: notifier,
		resolver: resolver,
		volume:   volume,
	}

	logger.Debug("Created dispatcher instance")

	return d
}

// OnTargetAppear handles the knob becoming visible: resolve the target and
// describe its current state.
func (d *Dispatcher) OnTargetAppear(ctx context.Context, mode ControlMode, appName string) string {
	handle, err := d.resolver.Resolve(ctx, mode, appName)
	if err != nil {
		return d.describeError(err)
	}

	return d.describeTarget(ctx, handle)
}

// OnRotate handles a knob rotation of the given tick count; each tick moves
// the volume by stepSizePct percentage points.
func (d *Dispatcher) OnRotate(ctx context.Context, mode ControlMode, appName string, ticks int, stepSizePct int) string {
	handle, err := d.resolver.Resolve(ctx, mode, appName)
	if err != nil {
		return d.describeError(err)
	}

	if err := d.volume.AdjustVolume(ctx, handle, ticks*stepSizePct); err != nil {
		return d.describeError(err)
	}

	return d.describeTarget(ctx, handle)
}

// OnKeyDown handles a knob press by toggling mute on the target.
func (d *Dispatcher) OnKeyDown(ctx context.Context, mode ControlMode, appName string) string {
	handle, err := d.resolver.Resolve(ctx, mode, appName)
	if err != nil {
		return d.describeError(err)
	}

	if err := d.volume.ToggleMute(ctx, handle); err != nil {
		return d.describeError(err)
	}

	return d.describeTarget(ctx, handle)
}

// OnSetTarget handles an absolute volume set. Process sinks can't take an
// absolute write, which surfaces as "N/A".
func (d *Dispatcher) OnSetTarget(ctx context.Context, mode ControlMode, appName string, targetPct int) string {
	handle, err := d.resolver.Resolve(ctx, mode, appName)
	if err != nil {
		return d.describeError(err)
	}

	if err := d.volume.SetVolume(ctx, handle, targetPct); err != nil {
		return d.describeError(err)
	}

	return d.describeTarget(ctx, handle)
}

// describeTarget renders the post-action state of a handle. Process sinks
// have no readable level, so they get a generic indicator.
func (d *Dispatcher) describeTarget(ctx context.Context, handle SinkHandle) string {
	if !handle.IsDefault() {
		return displayProcessSink
	}

	muted, err := d.volume.GetMuteState(ctx, handle)
	if err != nil {
		return d.describeError(err)
	}

	if muted {
		return displayMuted
	}

	volume, err := d.volume.GetVolume(ctx, handle)
	if err != nil {
		return d.describeError(err)
	}

	return fmt.Sprintf("%d%%", volume)
}

func (d *Dispatcher) describeError(err error) string {
	switch {
	case errors.Is(err, ErrMissingAppName):
		return displayNoAppName

	case errors.Is(err, ErrAppNotFound):
		return displayNotFound

	case errors.Is(err, ErrAppNotPlaying):
		return displayNotPlaying

	case errors.Is(err, ErrUnsupportedOperation):
		return displayUnsupported

	case errors.Is(err, ErrToolNotInstalled):
		d.missingToolOnce.Do(func() {
			d.logger.Warnw("wpctl not installed, notifying user")
			d.notifier.Notify("wpctl not found!", "volknob needs WirePlumber's wpctl on PATH to control volume.")
		})
		return displayNoTool
	}

	d.logger.Warnw("Action failed", "error", err)

	return displayError
}
