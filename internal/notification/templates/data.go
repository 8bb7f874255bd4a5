package templates

// PasswordResetData holds variables for the auth.password_reset scenario: a
// single-use link that replaces an existing password.
type PasswordResetData struct {
	Username      string
	Link          string
	ExpiryMinutes int
	SupportEmail  string
}

// PasswordReset is the typed handle for the auth.password_reset template.
var PasswordReset = Expect[PasswordResetData]("auth.password_reset")

// PasswordSetData holds variables for the auth.password_set scenario: a
// single-use link that establishes a first password on an OAuth-only account.
type PasswordSetData struct {
	Username      string
	Link          string
	ExpiryMinutes int
	SupportEmail  string
}

// PasswordSet is the typed handle for the auth.password_set template.
var PasswordSet = Expect[PasswordSetData]("auth.password_set")

// UsernameRecoveryData holds variables for the auth.username_recovery scenario.
type UsernameRecoveryData struct {
	Username     string
	LoginLink    string
	SupportEmail string
}

// UsernameRecovery is the typed handle for the auth.username_recovery template.
var UsernameRecovery = Expect[UsernameRecoveryData]("auth.username_recovery")
