package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"library-lending/db"
	"library-lending/session"
)

const AuthCookie = "lib_session"

// ParseToken verifies an HS256 login token and returns its claims.
func ParseToken(tokenStr, secret string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("missing claims")
	}
	return claims, nil
}

func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if ck, err := c.Request.Cookie(AuthCookie); err == nil {
		return ck.Value
	}
	return ""
}

// AuthRequired verifies the token signature, confirms the session is
// still live in Redis (logout and account deletion revoke it), loads
// the user once and stores the capability flags in the context.
func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFromRequest(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		claims, err := ParseToken(tokenStr, cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid token"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), claims.ID)
		if err != nil || as.UserID != claims.Subject {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "session expired"})
			return
		}

		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), claims.ID)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}

		c.Set("userID", u.ID)
		c.Set("sessionID", claims.ID)
		c.Set("canBorrow", u.Role.CanBorrow)
		c.Set("canManage", u.Role.CanManage)
		c.Set("isAdmin", u.Role.IsAdmin)

		c.Next()
	}
}

// Capability reads a boolean capability flag that AuthRequired stored in
// the context. Missing or mistyped flags read as "no".
func Capability(c *gin.Context, name string) bool {
	v, ok := c.Get(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// CanManage gates catalog administration (Admin and Librarian roles).
func CanManage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Capability(c, "canManage") {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "management privileges required"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Capability(c, "isAdmin") {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}
