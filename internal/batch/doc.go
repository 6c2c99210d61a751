// Package batch drives one run of the image fetch pipeline.
//
// A Runner walks the input items in order on a single worker. For each
// item it fetches with retries, resolves an output extension, writes
// the payload to its numbered destination object, and emits a progress
// snapshot. Failures are recorded and never abort the batch. Output
// numbering is derived from input position, so a failed item leaves a
// gap rather than shifting later items.
//
// # Cancellation
//
// Cancellation is cooperative: Cancel sets a flag that the loop polls
// once per item boundary, so an in-flight fetch finishes its own
// retry/backoff cycle first. Cancellation latency is therefore bounded
// by one item, not by the rest of the batch. A Cancel issued before a
// run starts is not lost: it stops that run at its first boundary, and
// the flag clears when the run finishes.
//
// # Single run at a time
//
// A Runner refuses to start a second run while one is active
// (ErrRunInProgress): two concurrent runs would have computed the same
// starting index and collided on output names.
package batch
