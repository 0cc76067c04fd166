// Package middleware adapts sessionkit.Engine.Authorize to net/http.
//
// [Guard] reads the bearer credential from the Authorization header, calls
// Authorize, and stores the resulting principal in the request context.
// [RequireRole] gates a route on the principal's role.
//
// # What this package must NOT do
//
//   - Parse or create credentials directly.
//   - Access Redis.
package middleware
