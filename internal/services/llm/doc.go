// Package llm provides an OpenRouter-compatible chat client used by the text
// stages of both pipelines.
//
// Callers:
//   - content: trend discovery, post planning, and caption writing
//   - video: storyboard creation
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// Client.GenerateJSON: CompleteJSON plus decoding into a caller struct.
// Client.CompleteText: free-form completion (captions).
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Context cancellation aborts retries immediately.
//
// Stages treat an exhausted client as a failed call and apply their own
// fallbacks where one exists.
package llm
