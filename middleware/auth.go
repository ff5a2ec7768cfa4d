package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-dev/inkwell/utils"
)

const (
	// ContextClaimsKey stores the verified claim set inside the gin context.
	ContextClaimsKey = "identity_claims"
	// ContextSubKey stores the identity subject for quick handler access.
	ContextSubKey = "identity_sub"
	// AccessTokenCookie is consulted when no Authorization header is present.
	AccessTokenCookie = "access_token"
)

// ExtractToken pulls the bearer token from the Authorization header, falling
// back to the access-token cookie.
func ExtractToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token, true
			}
		}
		return "", false
	}
	if token, err := ctx.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token, true
	}
	return "", false
}

// VerifyToken ensures the request carries a valid provider-issued token and
// attaches its claims to the request context. Every failure mode responds 401.
func VerifyToken(verifier *utils.TokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := ExtractToken(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "access denied, no token provided")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(token) {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextClaimsKey, claims)
		ctx.Set(ContextSubKey, claims.Subject)
		ctx.Next()
	}
}

// Subject returns the authenticated identity subject, if any.
func Subject(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(ContextSubKey)
	if !exists {
		return "", false
	}
	sub, ok := value.(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
