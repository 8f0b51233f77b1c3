// Package scheduler drives a built network to completion on a worker pool.
//
// # How It Works
//
// Every node moves through the readiness protocol recorded in a
// nodestore.Store:
//
//	Blocked → Ready → Submitted → Completed | Failed
//
// Nodes with no incoming edges start Ready. A single loop goroutine owns all
// scheduling decisions and selects over four event sources:
//   - the ready channel: a node index eligible to run. It is admitted once a
//     concurrency slot is free and the pool accepts it;
//   - the freed channel: a child whose last parent just completed. It is
//     marked Ready and pushed onto the ready channel;
//   - the pool's result channel: a node finished. Its children's in-degrees
//     are decremented and any that reach zero go to the freed channel;
//   - the run context: cancellation halts the run.
//
// The concurrency limit is a counting semaphore acquired before submission
// and released when the result arrives, so it bounds outstanding work
// independently of the pool's thread count.
//
// # Failure Policy
//
// The first failure halts the run: nothing new is admitted, in-flight nodes
// are drained, and every node that never ran ends Skipped. Outputs already
// published stay readable through network.Network.Output for diagnostics.
package scheduler
