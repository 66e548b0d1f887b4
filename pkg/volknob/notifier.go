package volknob

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier exposes the ability to notify the user with a title and a message
type Notifier interface {
	Notify(title string, message string)
}

// ToastNotifier provides toast notifications through the desktop's native
// notification mechanism
type ToastNotifier struct {
	logger *zap.SugaredLogger
}

// NewToastNotifier creates a ToastNotifier instance
func NewToastNotifier(logger *zap.SugaredLogger) (*ToastNotifier, error) {
	logger = logger.Named("notifier")

	notifier := &ToastNotifier{logger: logger}

	logger.Debug("Created toast notifier instance")

	return notifier, nil
}

// Notify sends a desktop notification with the provided title and message
func (tn *ToastNotifier) Notify(title string, message string) {
	tn.logger.Infow("Sending toast notification", "title", title, "message", message)

	// do this in a separate goroutine so the caller's event handling
	// isn't held up by the desktop notification daemon
	go func() {
		if err := beeep.Notify(title, message, ""); err != nil {
			tn.logger.Warnw("Failed to send toast notification", "error", err)
		}
	}()
}
