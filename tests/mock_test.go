package tests_test

import (
	"context"
	"sync"
)

type sentNotification struct {
	channel string
	message map[string]any
}

type NotificationsRecorder struct {
	lock sync.Mutex
	sent []sentNotification
}

func (r *NotificationsRecorder) Publish(_ context.Context, channel string, message any) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	m, _ := message.(map[string]any)
	r.sent = append(r.sent, sentNotification{channel: channel, message: m})
	return nil
}

// Types returns the notification types sent to channel, in order.
func (r *NotificationsRecorder) Types(channel string) []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	var types []string
	for _, n := range r.sent {
		if n.channel != channel {
			continue
		}
		if t, ok := n.message["type"].(string); ok {
			types = append(types, t)
		}
	}
	return types
}
