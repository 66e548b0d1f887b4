package volknob

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"volknob/pkg/volknob/util"
)

// CanonicalConfig provides application-wide access to configuration fields,
// as well as loading/file watching logic for volknob's configuration file
type CanonicalConfig struct {
	ControlMode     ControlMode
	AppName         string
	StepSizePct     int
	TargetVolumePct int
	WpctlCommand    string
	CommandTimeout  time.Duration

	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	// guards reloadConsumers: late subscribers may race the watcher
	// goroutine's reload notifications
	consumersLock   sync.Mutex
	reloadConsumers []chan bool

	userConfig *viper.Viper
}

const (
	userConfigFilepath = "config.yaml"

	userConfigName = "config"
	userConfigPath = "."
	configType     = "yaml"

	configKey_ControlMode     = "control_mode"
	configKey_AppName         = "app_name"
	configKey_StepSizePct     = "step_size_pct"
	configKey_TargetVolumePct = "target_volume_pct"
	configKey_WpctlCommand    = "wpctl_command"
	configKey_CommandTimeout  = "command_timeout"

	default_StepSizePct     = 2
	default_TargetVolumePct = 50
	default_WpctlCommand    = "wpctl"
	default_CommandTimeout  = 2 * time.Second

	minStepSizePct = 1
	maxStepSizePct = 10
)

// NewConfig creates a config instance for the volknob object and sets up its viper instance
func NewConfig(logger *zap.SugaredLogger, notifier Notifier) (*CanonicalConfig, error) {
	logger = logger.Named("config")

	cc := &CanonicalConfig{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(userConfigPath)

	userConfig.SetDefault(configKey_ControlMode, string(ControlModeSystem))
	userConfig.SetDefault(configKey_AppName, "")
	userConfig.SetDefault(configKey_StepSizePct, default_StepSizePct)
	userConfig.SetDefault(configKey_TargetVolumePct, default_TargetVolumePct)
	userConfig.SetDefault(configKey_WpctlCommand, default_WpctlCommand)
	userConfig.SetDefault(configKey_CommandTimeout, default_CommandTimeout)

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

// Load reads volknob's config file from disk and tries to parse it. A missing
// file is fine - every key has a usable default.
func (cc *CanonicalConfig) Load() error {
	cc.logger.Debugw("Loading config", "path", userConfigFilepath)

	if !util.FileExists(userConfigFilepath) {
		cc.logger.Debugw("Config file not found, using defaults", "path", userConfigFilepath)
	} else if err := cc.userConfig.ReadInConfig(); err != nil {
		cc.logger.Warnw("Viper failed to read user config", "error", err)

		if strings.Contains(err.Error(), "yaml:") {
			cc.notifier.Notify("Invalid configuration!",
				fmt.Sprintf("Please make sure %s is in a valid YAML format.", userConfigFilepath))
		} else {
			cc.notifier.Notify("Error loading configuration!", "Please check volknob's logs for more details.")
		}

		return fmt.Errorf("read user config: %w", err)
	}

	if err := cc.populateFromViper(); err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"controlMode", cc.ControlMode,
		"appName", cc.AppName,
		"stepSizePct", cc.StepSizePct,
		"targetVolumePct", cc.TargetVolumePct,
		"wpctlCommand", cc.WpctlCommand,
		"commandTimeout", cc.CommandTimeout,
	)

	return nil
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *CanonicalConfig) SubscribeToChanges() chan bool {
	cc.consumersLock.Lock()
	defer cc.consumersLock.Unlock()

	c := make(chan bool)
	cc.reloadConsumers = append(cc.reloadConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *CanonicalConfig) WatchConfigFileChanges() {
	cc.logger.Debugw("Starting to watch user config file for changes", "path", userConfigFilepath)

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	// establish watch using viper as opposed to doing it ourselves, though our internal cooldown is still required
	cc.userConfig.WatchConfig()
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {

		// when we get a write event...
		if event.Op&fsnotify.Write == fsnotify.Write {

			now := time.Now()

			// ... check if it's not a duplicate (many editors will write to a file twice)
			if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {

				// and attempt reload if appropriate
				cc.logger.Debugw("Config file modified, attempting reload", "event", event)

				// wait a bit to let the editor actually flush the new file contents to disk
				<-time.After(delayBetweenEventAndReload)

				if err := cc.Load(); err != nil {
					cc.logger.Warnw("Failed to reload config file", "error", err)
				} else {
					cc.logger.Info("Reloaded config successfully")
					cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")

					cc.onConfigReloaded()
				}

				// don't forget to update the time
				lastAttemptedReload = now
			}
		}
	})

	// wait till they stop us
	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *CanonicalConfig) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true

	// Close all reload consumer channels to signal goroutines to exit
	cc.closeReloadChannels()
}

// closeReloadChannels closes all reload consumer channels to signal goroutines to exit
func (cc *CanonicalConfig) closeReloadChannels() {
	cc.consumersLock.Lock()
	defer cc.consumersLock.Unlock()

	for _, ch := range cc.reloadConsumers {
		close(ch)
	}
	cc.reloadConsumers = nil
	cc.logger.Debug("Closed all config reload channels")
}

func (cc *CanonicalConfig) populateFromViper() error {
	mode := ControlMode(strings.ToLower(cc.userConfig.GetString(configKey_ControlMode)))
	if mode != ControlModeSystem && mode != ControlModeApplication {
		cc.logger.Warnw("Invalid control mode, falling back to system", "controlMode", mode)
		mode = ControlModeSystem
	}
	cc.ControlMode = mode

	cc.AppName = cc.userConfig.GetString(configKey_AppName)
	if cc.ControlMode == ControlModeApplication && cc.AppName == "" {
		cc.logger.Warnw("Application mode configured without an app name",
			"reminder", "target resolution will fail until app_name is set")
		cc.notifier.Notify("No application configured!",
			"control_mode is set to application but app_name is empty.")
	}

	cc.StepSizePct = cc.userConfig.GetInt(configKey_StepSizePct)
	if cc.StepSizePct < minStepSizePct || cc.StepSizePct > maxStepSizePct {
		cc.logger.Warnw("Step size out of range, clamping",
			"stepSizePct", cc.StepSizePct, "min", minStepSizePct, "max", maxStepSizePct)

		if cc.StepSizePct < minStepSizePct {
			cc.StepSizePct = minStepSizePct
		} else {
			cc.StepSizePct = maxStepSizePct
		}
	}

	cc.TargetVolumePct = cc.userConfig.GetInt(configKey_TargetVolumePct)
	if cc.TargetVolumePct < 0 || cc.TargetVolumePct > 100 {
		cc.logger.Warnw("Target volume out of range, clamping", "targetVolumePct", cc.TargetVolumePct)

		if cc.TargetVolumePct < 0 {
			cc.TargetVolumePct = 0
		} else {
			cc.TargetVolumePct = 100
		}
	}

	cc.WpctlCommand = cc.userConfig.GetString(configKey_WpctlCommand)
	if cc.WpctlCommand == "" {
		cc.WpctlCommand = default_WpctlCommand
	}

	cc.CommandTimeout = cc.userConfig.GetDuration(configKey_CommandTimeout)
	if cc.CommandTimeout <= 0 {
		cc.logger.Warnw("Invalid command timeout, using default", "commandTimeout", cc.CommandTimeout)
		cc.CommandTimeout = default_CommandTimeout
	}

	cc.logger.Debug("Populated config fields from viper")

	return nil
}

func (cc *CanonicalConfig) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	cc.consumersLock.Lock()
	consumers := make([]chan bool, len(cc.reloadConsumers))
	copy(consumers, cc.reloadConsumers)
	cc.consumersLock.Unlock()

	for _, consumer := range consumers {
		// Safely send to channel, handling closed channels
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Channel is closed, ignore
					cc.logger.Debugw("Config reload channel closed, skipping notification", "recover", r)
				}
			}()
			select {
			case consumer <- true:
			default:
				// Channel is full, skip
			}
		}()
	}
}
