// Package notifier informs the user of the actions taken by the controller.
package notifier

import "log/slog"

// A Notification describes an action taken by the controller.
type Notification struct {
	// Subject is the zone (or device) the action was taken for.
	Subject string
	Action  string
	Reason  string
	// Details holds the values the action was based on, e.g. the zone's temperature and band.
	Details []Detail
}

// A Detail is a named value shown with a Notification.
type Detail struct {
	Name  string
	Value string
}

func (n Notification) String() string {
	return n.Subject + ": " + n.Action
}

func (n Notification) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("subject", n.Subject),
		slog.String("action", n.Action),
		slog.String("reason", n.Reason),
	)
}

type Notifier interface {
	Notify(Notification)
}

type Notifiers []Notifier

func (n Notifiers) Notify(notification Notification) {
	for _, l := range n {
		l.Notify(notification)
	}
}
