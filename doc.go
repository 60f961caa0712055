// Package authclient is the session core for clients of the IAM admin
// backend. It owns the short-lived bearer credential and the plumbing
// around it so UI layers only submit credentials and render results.
//
// Session lifecycle:
//   - SessionStore is the single authoritative record of the current token
//     and the identity claims derived from it. It writes through to a
//     durable TokenStorage so a restarted process can reattach silently
//     (Client.Start attempts a refresh when the stored token is stale).
//
// Transparent refresh:
//   - RefreshCoordinator performs single-flight token refresh. Any number
//     of requests that fault on an expired token share exactly one refresh
//     call and observe the same outcome. The Gateway wraps outbound calls,
//     attaches the bearer token, and retries a faulted request at most once
//     after a successful refresh. Anything that survives the retry forces a
//     logout back to the unauthenticated surface.
//
// Lockouts:
//   - LockoutManager records server-imposed ban windows (login and reset
//     are tracked independently), exposes a once-per-second countdown, and
//     re-enables the guarded action the instant the window closes.
//
// Password reset:
//   - ResetFlow drives the lookup -> OTP -> reset protocol as a forward-only
//     state machine. Local preconditions (contact shape, password strength)
//     are validated before anything touches the network.
package authclient
