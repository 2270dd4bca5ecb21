// Package stabilizer turns raw per-frame detector and classifier output into
// publish decisions.
//
// A frame flows through four pieces of explicit state:
//
//	Selector  -> picks the best detection of the frame (stateless)
//	Gate      -> rate-limits classifier invocations
//	Engine    -> consensus over consecutive identical labels
//	Absence   -> sticky display and throttled "none" emission
//
// Nothing in this package performs I/O. Processor.Process returns an Outcome
// value and the caller decides what to draw and what to send.
package stabilizer
