// Package pipeline runs classification requests through ordered steps.
//
// A request for one photo passes through:
//
//	decode -> tensor -> infer -> resolve -> guidance
//
// Each stage is implemented as a Step that receives the Job and fills in
// its Classification. The first failing step terminates the request, and
// the error is recorded on the result together with a user-facing message
// (see UserMessage).
//
// Design decision: We use a pipeline pattern instead of direct function
// calls because:
// 1. The order decode < infer < resolve is enforced in one place
// 2. It provides consistent error handling, panic recovery and logging
// 3. It supports cancellation via context between steps
//
// Requests can run on the caller's goroutine (Classify), in the background
// (Submit, returning a cancellable Task), or many at once with a
// concurrency limit (BatchProcessor, built on errgroup).
package pipeline
