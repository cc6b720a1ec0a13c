package accountd

import "errors"

var (
	// ErrEngineNotReady is returned when Engine methods are called before a
	// successful Build or with required dependencies missing.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrInvalidCredentials is the uniform sign-in rejection. It covers an
	// unknown email, a wrong password, and a deactivated account; callers
	// are deliberately not told which.
	ErrInvalidCredentials = errors.New("invalid email address or password")

	// ErrSignInRateLimited is returned when the sign-in attempt budget for
	// an email or client IP is exhausted.
	ErrSignInRateLimited = errors.New("sign-in rate limited")

	// ErrEmailTaken is returned by SignUp when the email already has an
	// account.
	ErrEmailTaken = errors.New("an account with this email address already exists")

	// ErrInvalidEmail is returned when an email address fails shape
	// validation.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidPermission is returned when a sign-up request carries an
	// unknown permission code.
	ErrInvalidPermission = errors.New("invalid permission code")

	// ErrUserNotFound is returned by lookups for a missing user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreDuplicateEmail is the contract error UserStore
	// implementations must return (possibly wrapped) from Create on a
	// unique-email violation. The Engine maps it to ErrEmailTaken.
	ErrStoreDuplicateEmail = errors.New("user store: duplicate email")
)
