// Package provider delivers approved prompts to the response producer and
// collects responses. The core never talks to a model API itself: a
// provider either runs a local command that writes the response, or hands
// off to a human who drops the response file manually.
package provider

import (
	"context"
)

// DeliveryOutcome describes what happened to a delivered prompt.
type DeliveryOutcome string

const (
	// Completed means the response file exists when Deliver returns.
	Completed DeliveryOutcome = "completed"

	// Pending means the prompt was handed off and the response will appear
	// later; the response stage stays blocked until it does.
	Pending DeliveryOutcome = "pending"

	// Cancelled means delivery was interrupted by context cancellation.
	Cancelled DeliveryOutcome = "cancelled"
)

// Delivery is the result of handing a prompt to a provider.
type Delivery struct {
	Outcome DeliveryOutcome

	// Detail is a short human-readable note for history and logs.
	Detail string
}

// Provider hands an approved prompt file to whatever produces responses.
type Provider interface {
	// Name returns the provider's configuration name.
	Name() string

	// Deliver hands the prompt at promptPath off for processing. A
	// synchronous provider writes responsePath before returning Completed;
	// an asynchronous one returns Pending immediately. Collaborator
	// failures surface as *errors.ProviderError.
	Deliver(ctx context.Context, promptPath, responsePath string) (Delivery, error)
}
