// Package repositories implements SQLite persistence for the download queue.
//
// Key Implementations:
//   - [QueueRepository] : the queue store; sessions, items, claim, completion cascade, pause/resume/retry, repair
//   - [SettingsRepository] : download settings with config-file defaults
//   - [SessionLogRepository] : append-only per-session log lines
//
// Sequence numbers provide stable creation ordering independent of UUIDs and timestamps.
// They are drawn from dedicated sequence tables inside the same transaction as the insert, so the claim
// operation can hand out the oldest pending item by sequence.
//
// Write transactions begin with BEGIN IMMEDIATE (see [shared.DSN]), so a claim's read-then-update
// is serialized across connections and processes. Busy errors are retried with a short backoff.
package repositories
