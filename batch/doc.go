// Package batch applies a conversion across a collection of attachments.
//
// ProcessAttachments filters the requested items, dispatches them to a fixed
// pool of workers pulling from one queue, converts each one through the
// target's resilience policy and saves the result. Item failures never fail
// the batch; they are recorded in the Result. Only misconfiguration returns
// an error.
//
// Workers never touch the shared job. They submit outcomes to a single
// aggregator, which owns the counters and decides when the batch is over:
// when every item has an outcome, when the deadline passes or, with
// AbortOnFailure, once the items already started have finished.
package batch
