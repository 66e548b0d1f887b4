package volknob

import (
	"fmt"
	"path"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"volknob/pkg/volknob/util"
)

const (
	logDirectory = "logs"
	logFilename  = "volknob-latest-run.log"
)

// NewLogger provides a logger instance for the whole program
func NewLogger(verbose bool) (*zap.SugaredLogger, error) {
	var loggerConfig zap.Config

	if err := util.EnsureDirExists(logDirectory); err != nil {
		return nil, fmt.Errorf("ensure log directory exists: %w", err)
	}

	loggerConfig = zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{path.Join(logDirectory, logFilename)}

	if verbose {
		loggerConfig.OutputPaths = append(loggerConfig.OutputPaths, "stdout")
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	loggerConfig.EncoderConfig.EncodeCaller = nil

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("create zap logger: %w", err)
	}

	return logger.Sugar(), nil
}
