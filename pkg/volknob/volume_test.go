package volknob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVolumeControl(tool runner) *VolumeControl {
	return NewVolumeControl(newTestLogger(), tool)
}

func TestGetVolume(t *testing.T) {
	cases := []struct {
		response string
		expected int
	}{
		{"Volume: 0.42\n", 42},
		{"Volume: 0.00\n", 0},
		{"Volume: 1.00\n", 100},
		// over-amplification clamps to the display ceiling instead of failing
		{"Volume: 1.65\n", 100},
		{"Volume: 0.37 [MUTED]\n", 37},
	}

	for _, c := range cases {
		tool := newFakeRunner()
		tool.responses["get-volume "+defaultSinkTarget] = c.response

		vc := newTestVolumeControl(tool)

		volume, err := vc.GetVolume(context.Background(), DefaultSink())
		require.NoError(t, err, "response %q", c.response)
		assert.Equal(t, c.expected, volume, "response %q", c.response)
	}
}

func TestGetVolumeParseError(t *testing.T) {
	tool := newFakeRunner()
	tool.responses["get-volume "+defaultSinkTarget] = "Object '@DEFAULT_AUDIO_SINK@' not found\n"

	vc := newTestVolumeControl(tool)

	_, err := vc.GetVolume(context.Background(), DefaultSink())

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestGetMuteState(t *testing.T) {
	tool := newFakeRunner()
	tool.responses["get-volume "+defaultSinkTarget] = "Volume: 0.42 [MUTED]\n"

	vc := newTestVolumeControl(tool)

	muted, err := vc.GetMuteState(context.Background(), DefaultSink())
	require.NoError(t, err)
	assert.True(t, muted)

	tool.responses["get-volume "+defaultSinkTarget] = "Volume: 0.42\n"

	muted, err = vc.GetMuteState(context.Background(), DefaultSink())
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestSetVolumeInvocation(t *testing.T) {
	tool := newFakeRunner()
	vc := newTestVolumeControl(tool)

	require.NoError(t, vc.SetVolume(context.Background(), DefaultSink(), 42))

	assert.Equal(t, []string{"set-volume " + defaultSinkTarget + " 0.42"}, tool.callKeys())
}

func TestSetVolumeClampsInput(t *testing.T) {
	tool := newFakeRunner()
	vc := newTestVolumeControl(tool)

	require.NoError(t, vc.SetVolume(context.Background(), DefaultSink(), 140))
	require.NoError(t, vc.SetVolume(context.Background(), DefaultSink(), -5))

	assert.Equal(t, []string{
		"set-volume " + defaultSinkTarget + " 1.00",
		"set-volume " + defaultSinkTarget + " 0.00",
	}, tool.callKeys())
}

func TestProcessSinkUnsupportedOperations(t *testing.T) {
	vc := newTestVolumeControl(newFakeRunner())
	handle := ProcessSink(4821)

	_, err := vc.GetVolume(context.Background(), handle)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	err = vc.SetVolume(context.Background(), handle, 50)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = vc.GetMuteState(context.Background(), handle)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestToggleMuteInvocation(t *testing.T) {
	tool := newFakeRunner()
	vc := newTestVolumeControl(tool)

	require.NoError(t, vc.ToggleMute(context.Background(), DefaultSink()))
	require.NoError(t, vc.ToggleMute(context.Background(), ProcessSink(4821)))

	assert.Equal(t, []string{
		"set-mute " + defaultSinkTarget + " toggle",
		"set-mute --pid 4821 toggle",
	}, tool.callKeys())
}

func TestAdjustVolumeDefaultSinkClamps(t *testing.T) {
	tool := newFakeRunner()
	tool.responses["get-volume "+defaultSinkTarget] = "Volume: 0.95\n"

	vc := newTestVolumeControl(tool)

	require.NoError(t, vc.AdjustVolume(context.Background(), DefaultSink(), 10))

	// 95 + 10 clamps to 100, never above
	assert.Equal(t, []string{
		"get-volume " + defaultSinkTarget,
		"set-volume " + defaultSinkTarget + " 1.00",
	}, tool.callKeys())
}

func TestAdjustVolumeProcessSinkUsesIncrementNotation(t *testing.T) {
	tool := newFakeRunner()
	vc := newTestVolumeControl(tool)

	require.NoError(t, vc.AdjustVolume(context.Background(), ProcessSink(4821), 10))
	require.NoError(t, vc.AdjustVolume(context.Background(), ProcessSink(4821), -5))

	assert.Equal(t, []string{
		"set-volume --pid 4821 10+",
		"set-volume --pid 4821 5-",
	}, tool.callKeys())
}

func TestAdjustVolumeZeroDeltaIsNoop(t *testing.T) {
	tool := newFakeRunner()
	vc := newTestVolumeControl(tool)

	require.NoError(t, vc.AdjustVolume(context.Background(), DefaultSink(), 0))
	require.NoError(t, vc.AdjustVolume(context.Background(), ProcessSink(4821), 0))

	assert.Empty(t, tool.calls)
}

// statefulSink emulates a wpctl-controlled default sink: absolute sets are
// readable back and mute toggles flip the marker.
type statefulSink struct {
	fraction float64
	muted    bool
}

func (s *statefulSink) Run(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")

	switch {
	case key == "get-volume "+defaultSinkTarget:
		out := fmt.Sprintf("Volume: %.2f", s.fraction)
		if s.muted {
			out += " [MUTED]"
		}
		return out + "\n", nil

	case key == "set-mute "+defaultSinkTarget+" toggle":
		s.muted = !s.muted
		return "", nil

	case strings.HasPrefix(key, "set-volume "+defaultSinkTarget+" "):
		fraction, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return "", fmt.Errorf("bad fraction %q", args[2])
		}
		s.fraction = fraction
		return "", nil
	}

	return "", fmt.Errorf("unexpected invocation %q", key)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	sink := &statefulSink{}
	vc := newTestVolumeControl(sink)

	require.NoError(t, vc.SetVolume(context.Background(), DefaultSink(), 42))

	volume, err := vc.GetVolume(context.Background(), DefaultSink())
	require.NoError(t, err)
	assert.Equal(t, 42, volume)
}

func TestToggleMuteTwiceRestoresState(t *testing.T) {
	sink := &statefulSink{fraction: 0.5}
	vc := newTestVolumeControl(sink)

	original, err := vc.GetMuteState(context.Background(), DefaultSink())
	require.NoError(t, err)

	require.NoError(t, vc.ToggleMute(context.Background(), DefaultSink()))
	require.NoError(t, vc.ToggleMute(context.Background(), DefaultSink()))

	final, err := vc.GetMuteState(context.Background(), DefaultSink())
	require.NoError(t, err)
	assert.Equal(t, original, final)
}
