// Package server provides HTTP routing, middleware, and the operator API for the download queue.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Queue API
//
// [QueueHandler] exposes the queue operations as JSON endpoints under /api/:
//
//	GET    /api/queue                 full snapshot of every session and item
//	POST   /api/sessions              enqueue one track, or the missing tracks of a task
//	POST   /api/sessions/{id}/pause   pause a session and cancel its in-flight downloads
//	POST   /api/sessions/{id}/resume  resume a paused session
//	POST   /api/sessions/{id}/retry   requeue the session's failed items
//	DELETE /api/sessions/{id}         delete a session with its items and log
//	GET    /api/sessions/{id}/log     session log (JSON, or text with ?format=text)
//	POST   /api/items/{id}/retry      requeue one failed item
//	POST   /api/items/{id}/cancel     withdraw a pending or paused item
//	POST   /api/queue/clear           delete every completed session
//
// Every action answers with a JSON result object; failures map sentinel errors to status codes.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
