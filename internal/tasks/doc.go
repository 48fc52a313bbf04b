// Package tasks turns queued tracks into files on disk.
//
// # Resolution
//
// [Resolver.Resolve] locates a source for one wanted track. When the request carries a song id and a
// platform it fetches that source directly and accepts it only if both title and artist score at
// least 75. Otherwise each platform is searched in order, hint first, with the query "{artist} {title}";
// candidates score 0.6*title + 0.4*artist and the best one above 70 is downloaded from that platform
// right away. Every attempt returns an [Outcome] (success, rejected or platform error) and the loop
// branches on it. Files failing the quality gate are deleted and their platform is excluded for the item.
//
// # Scheduling
//
// [Manager] runs one claim loop. It takes a semaphore permit, claims the oldest pending item of an
// active session, and hands it to a worker goroutine registered in a [JobRegistry]. Workers run the
// resolver under a hard timeout and always write a terminal status. Pause, delete and stop signal
// workers through their registry entry. A session completed by a worker fires the [Hook] once, in its
// own goroutine.
//
// # Events
//
// Managers publish [Event] values on an optional channel with select/default, so a slow consumer such
// as the TUI never blocks workers.
//
// # Operations
//
// [Operations] wraps the manager with [Result] values for the CLI, HTTP and TUI surfaces.
package tasks
