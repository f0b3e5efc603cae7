package httputil

// Machine-readable error codes returned alongside error messages.
// Clients should branch on these, not on message text.
const (
	CodeInvalidRequestBody = "invalid_request_body"

	CodeEmailRequired      = "email_required"
	CodePasswordRequired   = "password_required"
	CodePasswordTooShort   = "password_too_short"
	CodeInvalidEmailFormat = "invalid_email_format"
	CodeEmailAlreadyExists = "email_already_exists"

	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotVerified   = "email_not_verified"

	CodeMissingAuth       = "missing_auth"
	CodeInvalidAuthHeader = "invalid_auth_header"
	CodeInvalidToken      = "invalid_token"
	CodeTokenExpired      = "token_expired"
	CodeForbidden         = "forbidden"

	CodeRefreshTokenRequired = "refresh_token_required"
	CodeInvalidRefreshToken  = "invalid_refresh_token"

	CodeVerificationTokenRequired = "verification_token_required"
	CodeVerificationFailed        = "verification_failed"

	CodeInvalidResetToken = "invalid_reset_token"
	CodeUserNotFound      = "user_not_found"

	CodeInvalidUserID = "invalid_user_id"
	CodeSelfDelete    = "self_delete"

	CodeTooManyRequests = "too_many_requests"
	CodeCooldownActive  = "cooldown_active"
	CodeInternalError   = "internal_error"
)
