package volknob

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// the config path is relative to the working directory, so each test runs
// inside its own temp dir
func loadConfigIn(t *testing.T, yaml string) (*CanonicalConfig, *fakeNotifier) {
	t.Helper()

	dir := t.TempDir()

	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(previous) })

	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, userConfigFilepath), []byte(yaml), 0o644))
	}

	notifier := &fakeNotifier{}
	cc, err := NewConfig(newTestLogger(), notifier)
	require.NoError(t, err)
	require.NoError(t, cc.Load())

	return cc, notifier
}

func TestConfigDefaults(t *testing.T) {
	cc, _ := loadConfigIn(t, "")

	assert.Equal(t, ControlModeSystem, cc.ControlMode)
	assert.Empty(t, cc.AppName)
	assert.Equal(t, default_StepSizePct, cc.StepSizePct)
	assert.Equal(t, default_TargetVolumePct, cc.TargetVolumePct)
	assert.Equal(t, default_WpctlCommand, cc.WpctlCommand)
	assert.Equal(t, default_CommandTimeout, cc.CommandTimeout)
}

func TestConfigApplicationMode(t *testing.T) {
	cc, _ := loadConfigIn(t, `
control_mode: application
app_name: mpv
step_size_pct: 5
target_volume_pct: 30
wpctl_command: "flatpak-spawn --host wpctl"
command_timeout: 5s
`)

	assert.Equal(t, ControlModeApplication, cc.ControlMode)
	assert.Equal(t, "mpv", cc.AppName)
	assert.Equal(t, 5, cc.StepSizePct)
	assert.Equal(t, 30, cc.TargetVolumePct)
	assert.Equal(t, "flatpak-spawn --host wpctl", cc.WpctlCommand)
	assert.Equal(t, 5*time.Second, cc.CommandTimeout)
}

func TestConfigClampsOutOfRangeValues(t *testing.T) {
	cc, _ := loadConfigIn(t, `
step_size_pct: 50
target_volume_pct: 140
`)

	assert.Equal(t, maxStepSizePct, cc.StepSizePct)
	assert.Equal(t, 100, cc.TargetVolumePct)

	cc, _ = loadConfigIn(t, `
step_size_pct: 0
target_volume_pct: -3
`)

	assert.Equal(t, minStepSizePct, cc.StepSizePct)
	assert.Equal(t, 0, cc.TargetVolumePct)
}

func TestConfigInvalidModeFallsBack(t *testing.T) {
	cc, _ := loadConfigIn(t, "control_mode: whatever\n")

	assert.Equal(t, ControlModeSystem, cc.ControlMode)
}

func TestConfigApplicationModeWithoutNameNotifies(t *testing.T) {
	_, notifier := loadConfigIn(t, "control_mode: application\n")

	assert.NotEmpty(t, notifier.titles)
}

func TestSubscribeDuringReloadNotification(t *testing.T) {
	cc, _ := loadConfigIn(t, "")

	// subscribing while the watcher fans out reload notifications must be
	// safe; run both sides concurrently so the race detector has a chance
	// to object
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			cc.SubscribeToChanges()
		}
	}()

	for i := 0; i < 100; i++ {
		cc.onConfigReloaded()
	}

	<-done
	cc.closeReloadChannels()
}
