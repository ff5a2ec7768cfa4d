package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-dev/inkwell/utils"
)

const (
	testIssuer   = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_TestPool"
	testClientID = "test-client-id"
	testKid      = "test-key"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newGuardedRouter(t *testing.T) (*gin.Engine, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier := &utils.TokenVerifier{
		Keys:     utils.StaticKeyProvider{testKid: &key.PublicKey},
		Issuer:   testIssuer,
		ClientID: testClientID,
	}

	r := gin.New()
	r.GET("/whoami", VerifyToken(verifier), func(ctx *gin.Context) {
		sub, _ := Subject(ctx)
		ctx.JSON(http.StatusOK, gin.H{"sub": sub})
	})
	return r, key
}

func signAccessToken(t *testing.T, key *rsa.PrivateKey, sub string) string {
	t.Helper()
	claims := utils.IdentityClaims{
		TokenUse: "access",
		ClientID: testClientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifyTokenMissing(t *testing.T) {
	r, _ := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyTokenInvalid(t *testing.T) {
	r, _ := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyTokenFromHeader(t *testing.T) {
	r, key := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signAccessToken(t, key, "subject-42"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "subject-42")
}

func TestVerifyTokenFromCookie(t *testing.T) {
	r, key := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: signAccessToken(t, key, "subject-cookie")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "subject-cookie")
}

func TestVerifyTokenBlacklisted(t *testing.T) {
	r, key := newGuardedRouter(t)

	token := signAccessToken(t, key, "subject-revoked")
	utils.BlacklistToken(token, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
