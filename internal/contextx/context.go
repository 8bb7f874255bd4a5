package contextx

// Key is a private type to avoid collisions in request context keys.
type Key string

// UserIDKey is the context key used to store the authenticated user's ID (string).
const UserIDKey Key = "userID"

// SessionClaimsKey is the context key used to store the decoded session claims
// (*identity.SessionClaims) for the current request.
const SessionClaimsKey Key = "sessionClaims"
