package notify

import (
	"context"
	"log"

	"github.com/Pranavsr23/PetalPost/internal/models"
	"github.com/Pranavsr23/PetalPost/internal/store"
)

// Fanout resolves recipient identities to their registered device tokens and
// issues one multicast send for all of them.
type Fanout struct {
	store  store.Store
	sender Sender
}

func NewFanout(s store.Store, sender Sender) *Fanout {
	return &Fanout{store: s, sender: sender}
}

// Notify sends p to every device of every recipient. Empty recipient lists
// and recipients with no registered devices are quiet no-ops; the sender is
// never called with zero tokens. Tokens are not deduplicated, each registered
// device gets its own delivery attempt. Per-token failures are logged and
// swallowed; only a transport failure is returned.
func (f *Fanout) Notify(ctx context.Context, recipientUIDs []string, p Payload) error {
	if len(recipientUIDs) == 0 {
		return nil
	}

	var tokens []string
	for _, uid := range recipientUIDs {
		devices, err := f.store.ListCollection(ctx, "users/"+uid+"/devices")
		if err != nil {
			return err
		}
		for _, doc := range devices {
			if token := models.DeviceFromDoc(doc).FCMToken; token != "" {
				tokens = append(tokens, token)
			}
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	report, err := f.sender.SendMulticast(ctx, tokens, p)
	if err != nil {
		return err
	}
	if report.FailureCount > 0 {
		log.Printf("notify: %d of %d tokens failed delivery for %q", report.FailureCount, len(tokens), p.Title)
	}
	return nil
}
