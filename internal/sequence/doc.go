// Package sequence implements the trial-sequencing engine.
//
// # Iteration protocol
//
// The engine is pull-based and single-threaded. An external scheduler owns
// the loop: it calls Advance to obtain the next trial record, interleaves
// its own work (rendering, input polling), and may capture or restore
// snapshots between steps. Nothing in this package blocks, suspends, or
// performs I/O.
//
// A run is set up once and then driven to exhaustion:
//
//	ord, err := sequence.Build(set.Len(), reps, sequence.Random, src)
//	cur, err := sequence.NewCursor(set, ord)
//	for {
//	    rec, ok := cur.Advance()
//	    if !ok {
//	        break // no further indices; the finished flag is the caller's call
//	    }
//	    // present rec, collect responses, cur.AddData(...)
//	}
//
// # Determinism
//
// All randomness is drawn from an injected Source of uniform floats in
// [0,1). Build converts floats to discrete choices in exactly one place
// (the Fisher–Yates shuffle), so a fixed Source stream reproduces a fixed
// ordering across runs and platforms.
//
// # State transitions
//
// Cursor counters move only inside Advance and Snapshot.Restore. An
// external scheduler writing counters directly breaks the
// completed+remaining invariant and is a documented misuse, not a
// supported path.
package sequence
