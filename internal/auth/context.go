package auth

import "github.com/gin-gonic/gin"

const tenantIDKey = "tenant_id"

// SetTenantID is called by the auth middleware once the caller's tenant has
// been verified. Handlers never accept a tenant id from the request body.
func SetTenantID(c *gin.Context, tenantID string) {
	c.Set(tenantIDKey, tenantID)
}

// TenantID returns the verified tenant id for the request, or "" when the
// middleware did not run.
func TenantID(c *gin.Context) string {
	if val, ok := c.Get(tenantIDKey); ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
