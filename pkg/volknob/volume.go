package volknob

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// wpctl reports volume as a decimal fraction, optionally followed by a mute
// marker, e.g. "Volume: 0.42 [MUTED]"
var volumeLinePattern = regexp.MustCompile(`Volume:\s*([0-9]+(?:\.[0-9]+)?)`)

const muteMarker = "[MUTED]"

// VolumeControl performs volume and mute operations against a sink handle,
// translating each into one wpctl invocation.
//
// The two handle kinds have asymmetric capabilities: wpctl's get-volume has
// no process-scoped form, so absolute reads and writes only exist for the
// default sink. Process sinks get relative, blind writes - the caller never
// learns the resulting absolute level.
type VolumeControl struct {
	logger *zap.SugaredLogger
	tool   runner
}

// NewVolumeControl creates a VolumeControl on top of the given wpctl runner.
func NewVolumeControl(logger *zap.SugaredLogger, tool runner) *VolumeControl {
	logger = logger.Named("volume")

	vc := &VolumeControl{
		logger: logger,
		tool:   tool,
	}

	logger.Debug("Created volume control instance")

	return vc
}

// GetVolume returns the current volume of the default sink in percent,
// clamped to [0,100]. Over-amplified sinks (fraction above 1.0) read as 100.
func (vc *VolumeControl) GetVolume(ctx context.Context, handle SinkHandle) (int, error) {
	if !handle.IsDefault() {
		return 0, fmt.Errorf("get volume for %s: %w", handle, ErrUnsupportedOperation)
	}

	_, volume, _, err := vc.queryDefaultSink(ctx)

	return volume, err
}

// SetVolume sets the default sink to the given percentage.
func (vc *VolumeControl) SetVolume(ctx context.Context, handle SinkHandle, pct int) error {
	if !handle.IsDefault() {
		return fmt.Errorf("set volume for %s: %w", handle, ErrUnsupportedOperation)
	}

	fraction := float64(clampPercent(pct)) / 100

	if _, err := vc.tool.Run(ctx, "set-volume", defaultSinkTarget, strconv.FormatFloat(fraction, 'f', 2, 64)); err != nil {
		vc.logger.Warnw("Failed to set sink volume", "pct", pct, "error", err)
		return fmt.Errorf("set sink volume: %w", err)
	}

	vc.logger.Debugw("Set sink volume", "pct", clampPercent(pct))

	return nil
}

// GetMuteState reports whether the default sink is muted.
func (vc *VolumeControl) GetMuteState(ctx context.Context, handle SinkHandle) (bool, error) {
	if !handle.IsDefault() {
		return false, fmt.Errorf("get mute state for %s: %w", handle, ErrUnsupportedOperation)
	}

	muted, _, _, err := vc.queryDefaultSink(ctx)

	return muted, err
}

// ToggleMute flips the mute state of the target. Supported for both handle
// kinds; wpctl scopes the toggle to a pid with the --pid flag.
func (vc *VolumeControl) ToggleMute(ctx context.Context, handle SinkHandle) error {
	args := []string{"set-mute", defaultSinkTarget, "toggle"}
	if !handle.IsDefault() {
		args = []string{"set-mute", "--pid", strconv.Itoa(handle.PID()), "toggle"}
	}

	if _, err := vc.tool.Run(ctx, args...); err != nil {
		vc.logger.Warnw("Failed to toggle mute", "handle", handle, "error", err)
		return fmt.Errorf("toggle mute: %w", err)
	}

	vc.logger.Debugw("Toggled mute", "handle", handle)

	return nil
}

// AdjustVolume changes the target volume by deltaPct percentage points.
//
// For the default sink this is a read-modify-write with the result clamped
// to [0,100]. For process sinks wpctl supports no absolute read, so the
// delta is handed to the tool's signed-increment notation directly and the
// resulting level stays unknown.
func (vc *VolumeControl) AdjustVolume(ctx context.Context, handle SinkHandle, deltaPct int) error {
	if deltaPct == 0 {
		return nil
	}

	if handle.IsDefault() {
		current, err := vc.GetVolume(ctx, handle)
		if err != nil {
			return fmt.Errorf("read current volume: %w", err)
		}

		return vc.SetVolume(ctx, handle, clampPercent(current+deltaPct))
	}

	notation := fmt.Sprintf("%d+", deltaPct)
	if deltaPct < 0 {
		notation = fmt.Sprintf("%d-", -deltaPct)
	}

	if _, err := vc.tool.Run(ctx, "set-volume", "--pid", strconv.Itoa(handle.PID()), notation); err != nil {
		vc.logger.Warnw("Failed to adjust process volume", "handle", handle, "delta", deltaPct, "error", err)
		return fmt.Errorf("adjust process volume: %w", err)
	}

	vc.logger.Debugw("Adjusted process volume", "handle", handle, "delta", deltaPct)

	return nil
}

// queryDefaultSink runs get-volume once and extracts both the percentage and
// the mute marker from the response text.
func (vc *VolumeControl) queryDefaultSink(ctx context.Context) (muted bool, volume int, fraction float64, err error) {
	out, err := vc.tool.Run(ctx, "get-volume", defaultSinkTarget)
	if err != nil {
		vc.logger.Warnw("Failed to query sink volume", "error", err)
		return false, 0, 0, fmt.Errorf("query sink volume: %w", err)
	}

	fraction, muted, err = parseVolumeResponse(out)
	if err != nil {
		vc.logger.Warnw("Failed to parse volume response", "output", out, "error", err)
		return false, 0, 0, err
	}

	return muted, clampPercent(int(math.Round(fraction * 100))), fraction, nil
}

func parseVolumeResponse(out string) (float64, bool, error) {
	match := volumeLinePattern.FindStringSubmatch(out)
	if match == nil {
		return 0, false, &ParseError{Output: strings.TrimSpace(out)}
	}

	fraction, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false, &ParseError{Output: strings.TrimSpace(out)}
	}

	return fraction, strings.Contains(out, muteMarker), nil
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}

	if pct > 100 {
		return 100
	}

	return pct
}
