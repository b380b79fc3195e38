// File: internal/middleware/client.go
package middleware

import (
	"net/http"
	"regexp"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ClientIdentity names the client behind each request. The id comes from the X-Client-ID header,
// then the client cookie; when neither is usable a new id is minted and set as a cookie.
func ClientIdentity(cfg *config.Config) gin.HandlerFunc {
	cookieName := cfg.ClientCookieName
	if cookieName == "" {
		cookieName = "fitcoach_client"
	}
	return func(c *gin.Context) {
		clientID := c.GetHeader(common.ClientIDHeader)
		if !clientIDPattern.MatchString(clientID) {
			clientID = ""
			if v, err := c.Cookie(cookieName); err == nil && clientIDPattern.MatchString(v) {
				clientID = v
			}
		}
		if clientID == "" {
			clientID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			// One year; the auth session has its own expiry.
			c.SetCookie(cookieName, clientID, 365*24*60*60, "/", "", cfg.CookieSecure, true)
		}
		c.Set(common.ClientIDKey, clientID)
		c.Next()
	}
}
