// Package volknob resolves a user-facing audio target (the system default
// output or a named running application) into a sink handle and issues
// volume/mute mutations against it through WirePlumber's wpctl tool.
package volknob

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"volknob/pkg/volknob/util"
)

// Volknob is the main entity managing access to all sub-components
type Volknob struct {
	logger   *zap.SugaredLogger
	notifier Notifier
	config   *CanonicalConfig

	resolver   *Resolver
	volume     *VolumeControl
	dispatcher *Dispatcher

	stopChannel chan bool
	version     string
	verbose     bool
	stopping    sync.Once

	// guards pipeline rebuilds triggered by config reloads
	pipelineMutex sync.Mutex
}

// NewVolknob creates a Volknob instance
func NewVolknob(logger *zap.SugaredLogger, verbose bool) (*Volknob, error) {
	logger = logger.Named("volknob")

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}

	config, err := NewConfig(logger, notifier)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	v := &Volknob{
		logger:      logger,
		notifier:    notifier,
		config:      config,
		stopChannel: make(chan bool),
		verbose:     verbose,
	}

	logger.Debug("Created volknob instance")

	return v, nil
}

// Initialize loads the config and builds the resolution/volume pipeline.
// It doesn't block; call Run to start the config watcher and wait for stop.
func (v *Volknob) Initialize() error {
	v.logger.Debug("Initializing")

	if v.version != "" {
		v.logger.Infow("Starting up", "version", v.version)
	}

	if !util.Linux() {
		v.logger.Warnw("Running on an unsupported platform", "os", "non-linux",
			"reminder", "wpctl is only available alongside WirePlumber")
	}

	// load the config for the first time
	if err := v.config.Load(); err != nil {
		v.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	if err := v.buildPipeline(); err != nil {
		v.logger.Errorw("Failed to build control pipeline", "error", err)
		return fmt.Errorf("build control pipeline: %w", err)
	}

	v.setupOnConfigReload()

	return nil
}

// Run watches the config file and blocks until interrupted or stopped.
func (v *Volknob) Run() error {
	v.logger.Info("Run loop starting")

	v.setupInterruptHandler()

	// watch the config file for changes
	go v.config.WatchConfigFileChanges()

	// wait until stopped (gracefully)
	<-v.stopChannel
	v.logger.Debug("Stop channel signaled, terminating")

	if err := v.stop(); err != nil {
		v.logger.Warnw("Failed to stop volknob", "error", err)
		return fmt.Errorf("stop volknob: %w", err)
	}

	return nil
}

// Dispatcher exposes the event interface for the host adapter (CLI shell,
// plugin host glue). Only valid after Initialize.
func (v *Volknob) Dispatcher() *Dispatcher {
	v.pipelineMutex.Lock()
	defer v.pipelineMutex.Unlock()

	return v.dispatcher
}

// Config exposes the current configuration values.
func (v *Volknob) Config() *CanonicalConfig {
	return v.config
}

// SetVersion causes volknob to log a version string if called before Initialize
func (v *Volknob) SetVersion(version string) {
	v.version = version
}

// Verbose returns a boolean indicating whether volknob is running in verbose mode
func (v *Volknob) Verbose() bool {
	return v.verbose
}

// buildPipeline (re)creates the wpctl runner, resolver, volume control and
// dispatcher from the current config values.
func (v *Volknob) buildPipeline() error {
	v.pipelineMutex.Lock()
	defer v.pipelineMutex.Unlock()

	tool, err := newWpctlRunner(v.logger, v.config.WpctlCommand, v.config.CommandTimeout)
	if err != nil {
		return fmt.Errorf("create wpctl runner: %w", err)
	}

	v.resolver = NewResolver(v.logger, tool, newProcessLister(v.logger))
	v.volume = NewVolumeControl(v.logger, tool)
	v.dispatcher = NewDispatcher(v.logger, v.notifier, v.resolver, v.volume)

	return nil
}

func (v *Volknob) setupOnConfigReload() {
	configReloadedChannel := v.config.SubscribeToChanges()

	go func() {
		for {
			_, ok := <-configReloadedChannel
			if !ok {
				v.logger.Debug("Config reload channel closed, exiting handler")
				return
			}

			// the wpctl command or timeout may have changed, and a changed
			// target makes old resolutions meaningless - rebuild and flush
			v.logger.Info("Detected config reload, rebuilding control pipeline")

			if err := v.buildPipeline(); err != nil {
				v.logger.Warnw("Failed to rebuild pipeline after config reload", "error", err)
				continue
			}

			v.resolver.FlushCache()
		}
	}()
}

func (v *Volknob) setupInterruptHandler() {
	interruptChannel := util.SetupCloseHandler()

	go func() {
		signal := <-interruptChannel
		v.logger.Debugw("Interrupted", "signal", signal)
		v.signalStop()
	}()
}

func (v *Volknob) signalStop() {
	v.stopping.Do(func() {
		v.logger.Debug("Signalling stop channel")
		select {
		case v.stopChannel <- true:
		default:
			// Channel already has a signal, ignore
		}
	})
}

func (v *Volknob) stop() error {
	v.logger.Info("Stopping")

	v.config.StopWatchingConfigFile()

	// attempt to sync on exit - this won't necessarily work but can't harm
	v.logger.Sync()

	return nil
}

// SignalStop requests a graceful shutdown of a running Volknob.
func (v *Volknob) SignalStop() {
	v.signalStop()
}
