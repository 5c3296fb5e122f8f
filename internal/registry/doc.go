// Package registry owns the mapping from service name to the current Service
// record. Candidate updates arrive on a bounded Queue and are applied by a
// single Reconciler goroutine using last-writer-wins on the HLC version:
// a candidate replaces the stored record only when its version is strictly
// greater. Lookups may run concurrently with the reconcile loop.
package registry
