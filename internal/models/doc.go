// Package models defines the domain entities of the trackq download pipeline.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: database-backed records whose state transitions are owned by the queue store
//   - [Session] : a group of related downloads with success/failed/total counters
//   - [QueueItem] : one track acquisition unit moving pending -> downloading -> success|failed
//   - [LogEntry] : a leveled line narrating a session's progress
//
// 2. Data Transfer Objects: lightweight values passed between layers
//   - [WantedTrack] : a track requested for download
//   - [DownloadSettings] : operator-tunable download settings
//   - [QueueSnapshot] : every session with its items, read in one transaction
//
// Persistent entities implement the [Model] interface providing ID, timestamps, and validation.
package models
