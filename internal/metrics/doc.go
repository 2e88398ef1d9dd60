// Package metrics keeps a bounded, time-ordered window of a user's
// cognitive load and energy samples in sync with the gateway.
//
// # Key Components
//
//	Window  - ring buffer of Sample, capped, ordered by timestamp
//	Feed    - initial fetch + live subscription + polling fallback
//	Source  - the gateway surface a Feed reads from
//	Classify - maps a load value to optimal / high / critical
//
// # Message Flow
//
//  1. Start sets status to connecting and fetches the newest N samples
//  2. A change subscription is opened for the user
//  3. A single reducer goroutine applies Insert and StatusChanged events
//  4. While disconnected, the window is re-fetched every PollInterval
//  5. Refresh replaces the window wholesale at any time
//  6. Close unsubscribes, stops timers and discards late results
//
// Consumers wait on Updates and read Snapshot, which carries the samples,
// the latest sample, the status and the chart Series.
package metrics
