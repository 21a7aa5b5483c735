package engine

import (
	"time"

	"github.com/medreferral/medbot/internal/notify"
)

// Reply is everything one turn produces: immediate messages, an optional
// ordered choice set, an optional delayed follow-up, and an optional email
// job. Rule names which dispatch rule matched, for logs and metrics.
type Reply struct {
	Messages     []string        `json:"messages"`
	Options      []string        `json:"options,omitempty"`
	FollowUp     *FollowUp       `json:"followUp,omitempty"`
	Notification *notify.Request `json:"-"`
	Rule         string          `json:"-"`
}

// FollowUp is a message batch delivered after a delay, strictly ordered
// after the reply's immediate messages.
type FollowUp struct {
	Delay    time.Duration `json:"-"`
	DelayMS  int64         `json:"delayMs"`
	Messages []string      `json:"messages"`
	Options  []string      `json:"options,omitempty"`
}

func (r *Reply) addMessage(msg string) {
	r.Messages = append(r.Messages, msg)
}

func (r *Reply) setOptions(opts ...string) {
	r.Options = opts
}
