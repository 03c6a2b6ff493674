package notifier

import (
	"context"
	"log"
)

// Notifier delivers report text to an operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes reports to the process log. It is used when Telegram
// is not configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (LogNotifier) Notify(_ context.Context, text string) error {
	log.Printf("[INFO] report:\n%s", text)
	return nil
}
