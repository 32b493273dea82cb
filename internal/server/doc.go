// Package server provides the HTTP surface of the transfer service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-scoped patterns.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// [TransferHandler] is the one real handler: it serves the source connect,
// listing, transfer scheduling, and transfer status endpoints, translating
// the shared error sentinels into HTTP status codes.
package server
