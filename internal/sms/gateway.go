// Package sms talks to the outbound SMS gateway and renders the short
// message bodies the engine sends to operators.
package sms

import "context"

// Gateway delivers a single outbound message and reports the provider
// message id for the exchange log.
type Gateway interface {
	Send(ctx context.Context, to, body string) (messageID string, err error)
}

// NoopGateway is used when no gateway is configured. Messages are
// accepted and dropped, which keeps local development working without
// a provider account.
type NoopGateway struct{}

func (NoopGateway) Send(_ context.Context, _, _ string) (string, error) {
	return "noop", nil
}
