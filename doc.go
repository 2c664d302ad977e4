// Package portal provides the session and access control core for the
// alumni membership portal: a local credential provider with JWT
// issuance, profile backed role resolution, and route guarding.
//
// Session lifecycle:
//   - SessionStore tracks the current session through a single
//     initializing to ready transition and never regresses. Provider
//     events and the initial lookup race safely; whichever lands first
//     wins and listeners observe a consistent ordered stream.
//   - AuthContext is the application facing surface: current identity,
//     loading state, idempotent sign out, and profile resolution that
//     discards results made stale by an identity change mid flight.
//
// Role resolution:
//   - RoleResolver maps an identity id to its Profile row. A missing
//     profile is distinguished from a transient lookup failure so
//     callers can retry transport errors without masking a genuine
//     data integrity fault.
//
// Route guarding:
//   - RouteGuard evaluates one route's audience declaration against
//     the session and resolved role, producing pending,
//     unauthenticated, authorized, or misrouted outcomes. Misrouted
//     users are sent to their own role's home page, never an error
//     screen.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the store,
//     the provider, and the guard to describe sign in, sign out,
//     misroute, and missing profile events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue
//     without blocking authentication.
package portal
