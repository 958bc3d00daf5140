// Package batch provides parallel fetching of a batch of named endpoint requests.
//
// Every request in a batch runs in its own goroutine with its own retry
// sequence; one request's retries and backoff never delay another. The
// coordinator waits for every request to reach a terminal state and returns
// exactly one Outcome per request key. A failing request becomes a failed
// Outcome and never cancels or affects the others.
//
// Example usage:
//
//	coordinator := batch.NewCoordinator(fetchClient, batch.DefaultConfig())
//	outcomes, err := coordinator.FetchAll(ctx, []batch.Request{
//		{Key: "users", Endpoint: "users"},
//		{Key: "posts", Endpoint: "posts"},
//	})
//
// The coordinator:
//   - Rejects batches with duplicate keys before issuing any request
//   - Spawns one worker per request (optionally capped by MaxConcurrency)
//   - Gives each worker its own result slot, so collection needs no locking
//   - Reports cancellation of the surrounding context as failed outcomes
//     matching client.ErrCancelled
package batch
