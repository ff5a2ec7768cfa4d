package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/inkwell-dev/inkwell/config"
	"github.com/inkwell-dev/inkwell/middleware"
	"github.com/inkwell-dev/inkwell/utils"
)

// AuthController fronts the hosted identity provider: credential flows are
// proxied to it, sessions land in httpOnly cookies, and verification happens
// locally against the provider's published keys.
type AuthController struct {
	db       *gorm.DB
	verifier *utils.TokenVerifier
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, verifier *utils.TokenVerifier) *AuthController {
	return &AuthController{db: db, verifier: verifier}
}

// Signup registers a new identity with the provider.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid email or password")
		return
	}

	cfg := config.Get()
	client, err := utils.GetCognitoClient()
	if err != nil {
		utils.Sugar.Errorf("identity provider client unavailable: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "identity provider unavailable")
		return
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(cfg.CognitoClientID),
		Username: aws.String(req.Email),
		Password: aws.String(req.Password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(req.Email)},
		},
	}
	if cfg.CognitoClientSecret != "" {
		input.SecretHash = aws.String(utils.SecretHash(req.Email, cfg.CognitoClientID, cfg.CognitoClientSecret))
	}

	out, err := client.SignUp(ctx.Request.Context(), input)
	if err != nil {
		utils.Sugar.Warnf("signup rejected for %s: %v", req.Email, err)
		utils.Error(ctx, http.StatusBadRequest, 40002, "signup failed")
		return
	}

	utils.Created(ctx, gin.H{
		"sub":       aws.ToString(out.UserSub),
		"confirmed": out.UserConfirmed,
	})
}

// Login exchanges credentials for provider tokens via the password flow.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid email or password")
		return
	}

	cfg := config.Get()
	client, err := utils.GetCognitoClient()
	if err != nil {
		utils.Sugar.Errorf("identity provider client unavailable: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "identity provider unavailable")
		return
	}

	params := map[string]string{
		"USERNAME": req.Email,
		"PASSWORD": req.Password,
	}
	if cfg.CognitoClientSecret != "" {
		params["SECRET_HASH"] = utils.SecretHash(req.Email, cfg.CognitoClientID, cfg.CognitoClientSecret)
	}

	out, err := client.InitiateAuth(ctx.Request.Context(), &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(cfg.CognitoClientID),
		AuthParameters: params,
	})
	if err != nil || out.AuthenticationResult == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40104, "invalid credentials")
		return
	}

	result := out.AuthenticationResult
	a.setSessionCookies(ctx, cfg,
		aws.ToString(result.IdToken),
		aws.ToString(result.AccessToken),
		aws.ToString(result.RefreshToken),
		int(result.ExpiresIn))

	utils.Success(ctx, gin.H{
		"id_token":      aws.ToString(result.IdToken),
		"access_token":  aws.ToString(result.AccessToken),
		"refresh_token": aws.ToString(result.RefreshToken),
		"expires_in":    result.ExpiresIn,
	})
}

// Logout revokes the session with the provider, blacklists the presented
// token for its remaining lifetime and clears the session cookies.
func (a *AuthController) Logout(ctx *gin.Context) {
	token, ok := middleware.ExtractToken(ctx)
	if ok {
		if client, err := utils.GetCognitoClient(); err == nil {
			// Best effort: a token already revoked upstream still gets
			// blacklisted locally below.
			_, _ = client.GlobalSignOut(ctx.Request.Context(), &cognitoidentityprovider.GlobalSignOutInput{
				AccessToken: aws.String(token),
			})
		}

		expiresAt := time.Now().Add(time.Hour)
		if claims, err := a.verifier.Verify(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(token, expiresAt)
	}

	cfg := config.Get()
	a.clearSessionCookies(ctx, cfg)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// AuthorizeURL returns the provider's hosted sign-in URL with a fresh
// single-use state value.
func (a *AuthController) AuthorizeURL(ctx *gin.Context) {
	cfg := config.Get()
	if cfg.CognitoDomain == "" {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "hosted sign-in is not configured")
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	url := a.oauthConfig(cfg).AuthCodeURL(state)
	utils.Success(ctx, gin.H{"url": url, "state": state})
}

// Callback finishes the hosted sign-in: the code is exchanged for tokens,
// which land in httpOnly cookies before redirecting to the dashboard.
func (a *AuthController) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40004, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid or expired state")
		return
	}

	cfg := config.Get()
	token, err := a.oauthConfig(cfg).Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Sugar.Warnf("code exchange failed: %v", err)
		utils.Error(ctx, http.StatusUnauthorized, 40105, "code exchange failed")
		return
	}

	idToken, _ := token.Extra("id_token").(string)
	refreshToken := token.RefreshToken
	expiresIn := int(time.Until(token.Expiry).Seconds())

	a.setSessionCookies(ctx, cfg, idToken, token.AccessToken, refreshToken, expiresIn)
	ctx.Redirect(http.StatusFound, cfg.DashboardURL)
}

// VerifyTokenEndpoint verifies the presented token and returns its claims.
func (a *AuthController) VerifyTokenEndpoint(ctx *gin.Context) {
	token, ok := middleware.ExtractToken(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "missing token")
		return
	}
	if utils.IsTokenBlacklisted(token) {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "token revoked")
		return
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "invalid token")
		return
	}

	utils.Success(ctx, gin.H{
		"sub":       claims.Subject,
		"email":     claims.Email,
		"username":  claims.Username,
		"token_use": claims.TokenUse,
	})
}

func (a *AuthController) oauthConfig(cfg config.AppConfig) *oauth2.Config {
	domain := strings.TrimSuffix(cfg.CognitoDomain, "/")
	return &oauth2.Config{
		ClientID:     cfg.CognitoClientID,
		ClientSecret: cfg.CognitoClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://%s/oauth2/authorize", domain),
			TokenURL: fmt.Sprintf("https://%s/oauth2/token", domain),
		},
	}
}

func (a *AuthController) setSessionCookies(ctx *gin.Context, cfg config.AppConfig, idToken, accessToken, refreshToken string, expiresIn int) {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	if idToken != "" {
		ctx.SetCookie("id_token", idToken, expiresIn, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	}
	if accessToken != "" {
		ctx.SetCookie(middleware.AccessTokenCookie, accessToken, expiresIn, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	}
	if refreshToken != "" {
		ctx.SetCookie("refresh_token", refreshToken, 30*24*3600, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	}
}

func (a *AuthController) clearSessionCookies(ctx *gin.Context, cfg config.AppConfig) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	for _, name := range []string{"id_token", middleware.AccessTokenCookie, "refresh_token"} {
		ctx.SetCookie(name, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	}
}
