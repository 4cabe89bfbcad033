// Package notify adapts github.com/slack-go/slack into the xemm.Notifier
// sink the strategy core calls on maker order placements and accepted
// hedges — the direct analogue of the teacher's bbgo.Notify calls.
package notify

import (
	"fmt"

	"github.com/slack-go/slack"
	"github.com/sirupsen/logrus"
)

// SlackNotifier posts formatted messages to a single Slack channel.
// A zero-value token disables delivery; Notify then only logs.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	log     *logrus.Entry
}

// NewSlackNotifier constructs a notifier. token may be empty to disable
// actual delivery while still exercising the logging path.
func NewSlackNotifier(token, channel string, log *logrus.Entry) *SlackNotifier {
	var client *slack.Client
	if token != "" {
		client = slack.New(token)
	}
	return &SlackNotifier{client: client, channel: channel, log: log}
}

// Notify implements xemm.Notifier.
func (n *SlackNotifier) Notify(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if n.log != nil {
		n.log.Info(msg)
	}
	if n.client == nil || n.channel == "" {
		return
	}
	if _, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(msg, false)); err != nil {
		if n.log != nil {
			n.log.WithError(err).Warn("slack notification failed")
		}
	}
}
