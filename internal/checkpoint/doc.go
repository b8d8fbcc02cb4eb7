// Package checkpoint provides durable per-run, per-asset completion markers.
// The execution engine writes a marker when an asset completes and consults
// them at run start, which makes re-running an interrupted run idempotent for
// assets that already finished.
package checkpoint
