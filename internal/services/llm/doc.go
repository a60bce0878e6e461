// Package llm provides an OpenRouter chat client used as a similarity oracle.
//
// The client sends a system and user prompt to a configured model and asks for
// a JSON object back. RateSimilarity builds on CompleteJSON to score how likely
// each catalog title names the same mod as the queried page.
//
// Requests are retried on HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 1s, max 10s, 3 attempts by default). A Retry-After
// header overrides the backoff. Context cancellation stops retrying at once, so
// callers bound the total time with their own deadline.
package llm
