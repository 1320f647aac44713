package notifier

import (
	"log/slog"
)

type SLogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = &SLogNotifier{}

func (s SLogNotifier) Notify(n Notification) {
	args := make([]any, 0, 2+2*len(n.Details))
	args = append(args, "reason", n.Reason)
	for _, detail := range n.Details {
		args = append(args, detail.Name, detail.Value)
	}
	s.Logger.Info(n.String(), args...)
}
