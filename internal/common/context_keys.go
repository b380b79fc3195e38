// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// ClientIDHeader lets non-browser clients name their client id explicitly.
	ClientIDHeader = "X-Client-ID"

	// ClientIDKey is the context key for the resolved client id.
	ClientIDKey = "clientID"
	// UserIDKey is the context key for storing the authenticated user's ID
	UserIDKey = "userID"
	// UserEmailKey is the context key for storing the authenticated user's email
	UserEmailKey = "userEmail"
	// UserRoleKey is the context key for storing the authenticated user's role
	UserRoleKey = "userRole"
	// SessionIDKey is the context key for the session id backing the request.
	SessionIDKey = "sessionID"
	// ProfileKey holds the resolved *profile.Profile, when there is one.
	ProfileKey = "profile"
)
