package notify

import (
	"context"

	"firebase.google.com/go/v4/messaging"
)

// Payload is one push notification. Data values ride FCM's data channel,
// which only carries strings, so callers coerce everything before it gets
// here. Payloads are never persisted.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendReport summarizes a multicast attempt. FailedTokens lists tokens the
// sender rejected individually (stale registrations and the like); those are
// an expected part of normal operation.
type SendReport struct {
	SuccessCount int
	FailureCount int
	FailedTokens []string
}

// Sender delivers one payload to a batch of device tokens. An error means the
// transport itself failed; per-token rejections come back in the report.
type Sender interface {
	SendMulticast(ctx context.Context, tokens []string, p Payload) (SendReport, error)
}

type fcmSender struct {
	client *messaging.Client
}

// NewFCMSender wraps a Firebase messaging client as a Sender.
func NewFCMSender(client *messaging.Client) Sender {
	return &fcmSender{client: client}
}

func (s *fcmSender) SendMulticast(ctx context.Context, tokens []string, p Payload) (SendReport, error) {
	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: p.Data,
	})
	if err != nil {
		return SendReport{}, err
	}
	report := SendReport{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}
	for i, r := range resp.Responses {
		if !r.Success && i < len(tokens) {
			report.FailedTokens = append(report.FailedTokens, tokens[i])
		}
	}
	return report, nil
}
