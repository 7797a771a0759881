// Package idbridge brokers identity between an external identity provider
// and an internal application: it exchanges an externally authenticated
// identity for a locally persisted user plus a short-lived internal token,
// and gates protected operations on the grant carried by that token.
//
// Federation:
//   - Authenticator.LoginOrRegister fetches the external identity, resolves
//     or creates the internal user (at most one row per external identity,
//     enforced through the store's uniqueness constraints), and mints an
//     internal HS256 token carrying the user's role and the upstream
//     permissions.
//   - Authenticator.ResolveUserFromToken re-validates an internal token on
//     every call and loads the user it references. Nothing is cached.
//
// Authorization:
//   - Authorize normalizes a decoded token's roles and permissions into a
//     Grant and evaluates a Requirement. Structurally broken grant fields
//     are a distinct malformed-grant failure, never a plain denial.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the
//     Authenticator to describe login and token resolution events. Sinks
//     run best-effort (errors are logged) so auditing never blocks
//     authentication.
package idbridge
