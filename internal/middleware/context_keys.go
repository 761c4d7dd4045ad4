package middleware

import "github.com/gin-gonic/gin"

// businessIDKey is the key used to store the authenticated business ID in the
// Gin context. Using a custom type prevents collisions.
const businessIDKey = contextKey("businessID")

// GetBusinessIDFromContext retrieves the authenticated business ID from the
// Gin context. It returns the ID and a boolean indicating if it was found.
func GetBusinessIDFromContext(c *gin.Context) (string, bool) {
	businessIDVal, exists := c.Get(string(businessIDKey))
	if !exists {
		if v := c.Request.Context().Value(businessIDKey); v != nil {
			if id, ok := v.(string); ok {
				return id, true
			}
		}
		return "", false
	}

	businessID, ok := businessIDVal.(string)
	if !ok {
		return "", false
	}
	return businessID, true
}
