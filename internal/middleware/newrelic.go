package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicPrincipal returns middleware that tags the New Relic transaction
// started by nrgin with the authenticated principal and the route's id
// parameter. It must run after Authenticate.
func NewRelicPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if principal := PrincipalFrom(c); principal != nil {
			txn.AddAttribute("user.email", principal.Email)
			txn.AddAttribute("user.role", string(principal.Role))
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("rental.target_id", id)
		}

		c.Next()

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
