// Package progress accounts for batch throughput and renders it.
//
// Tracker is the accounting half: two running sums (bytes transferred,
// time spent transferring) from which mean speed in Mbit/s and a
// remaining-time estimate are recomputed on demand. It holds no other
// state and does no I/O.
//
// Reporter is the display half: a passive sink that keeps the latest
// Snapshot and redraws a terminal line on a ticker. The batch worker
// hands it snapshots and never blocks on display I/O.
//
// # Usage
//
//	var tracker progress.Tracker
//	mbps := tracker.Update(bytes, elapsed)
//	eta, ok := progress.ETA(completed, total, time.Since(start))
//
// # Output format
//
//	[inatdl] Fetching 240 images -> /data/images
//	[inatdl] 37/240 images | 4.21 Mbit/s | ETA: 2m 14s
package progress
