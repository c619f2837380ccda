package tryfi

import "errors"

var (
	// ErrLogin means the login endpoint rejected the credentials or was
	// unreachable. Fatal for the current cycle, retried on the next one.
	ErrLogin = errors.New("tryfi: login failed")

	// ErrNotAuthorized means the session expired or was rejected mid-use.
	// Candidates for a single re-login and retry.
	ErrNotAuthorized = errors.New("tryfi: not authorized")

	// ErrRemoteAPI means tryfi.com returned an unexpected result: empty
	// payload, invalid JSON, or GraphQL errors not indicating auth.
	ErrRemoteAPI = errors.New("tryfi: unexpected remote api response")
)

// IsAuthError reports whether err should trigger re-authentication.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}
