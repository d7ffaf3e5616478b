// Package ai provides the completion-service client used by the
// semantic mapping tier.
package ai

import "context"

// Client is the interface for completion providers. The semantic
// strategy depends on this capability, not on a concrete provider.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// systemPrompt frames every mapping request.
const systemPrompt = "You are an expert in defense industry programs and job analysis."
