// Package poller watches backend jobs until they reach a terminal status.
//
// Watch starts one goroutine per job that queries the job status on every
// tick of an injected clock. A completed job is fetched exactly once and
// reported through a single notification; a job that reports an error stops
// without a fetch. Handles are cancellable and Slots keeps at most one live
// handle per named purpose so a superseded poll can never deliver into a
// phase that has moved on.
package poller
