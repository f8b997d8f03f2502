package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/services/auth"
)

type fakeAuth struct {
	AuthService

	signupFn func(ctx context.Context, in auth.SignupInput) (auth.OTPResult, error)
	signinFn func(ctx context.Context, email, password string) (auth.SigninResult, error)
	verifyFn func(ctx context.Context, userID, code string) (*auth.Session, error)
}

func (f *fakeAuth) Signup(ctx context.Context, in auth.SignupInput) (auth.OTPResult, error) {
	return f.signupFn(ctx, in)
}

func (f *fakeAuth) Signin(ctx context.Context, email, password string) (auth.SigninResult, error) {
	return f.signinFn(ctx, email, password)
}

func (f *fakeAuth) VerifyOTP(ctx context.Context, userID, code string) (*auth.Session, error) {
	return f.verifyFn(ctx, userID, code)
}

func TestSignup_CreatedVsRetry(t *testing.T) {
	svc := &fakeAuth{signupFn: func(_ context.Context, in auth.SignupInput) (auth.OTPResult, error) {
		switch in.Email {
		case "new@example.com":
			return auth.OTPResult{UserID: "u1", Created: true, DevOTP: "123456", EmailDisabled: true}, nil
		case "pending@example.com":
			return auth.OTPResult{UserID: "u2"}, nil
		}
		return auth.OTPResult{}, errutil.BadRequest("An account with this email already exists", nil)
	}}

	r := gin.New()
	r.POST("/signup", Signup(svc))

	w := serve(r, http.MethodPost, "/signup", gin.H{"name": "Asha", "email": "new@example.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	require.Equal(t, "u1", body["userId"])
	require.Equal(t, "123456", body["devOtp"])
	require.Equal(t, true, body["emailDisabled"])

	w = serve(r, http.MethodPost, "/signup", gin.H{"name": "Asha", "email": "pending@example.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	require.Equal(t, "Verification code sent to your email", body["message"])
	require.NotContains(t, body, "devOtp")

	w = serve(r, http.MethodPost, "/signup", gin.H{"name": "Asha", "email": "taken@example.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "An account with this email already exists", decode(t, w)["message"])
}

func TestSignin_NeedsVerification(t *testing.T) {
	user := &models.User{Name: "Asha", Email: "asha@example.com", IsVerified: true}
	svc := &fakeAuth{signinFn: func(_ context.Context, email, _ string) (auth.SigninResult, error) {
		if email == "pending@example.com" {
			return auth.SigninResult{NeedsVerification: true, Pending: auth.OTPResult{UserID: "u2", DevOTP: "654321", EmailDisabled: true}}, nil
		}
		return auth.SigninResult{Session: &auth.Session{Token: "jwt", User: user}}, nil
	}}

	r := gin.New()
	r.POST("/signin", Signin(svc))

	w := serve(r, http.MethodPost, "/signin", gin.H{"email": "pending@example.com", "password": "x"}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, true, body["needsVerification"])
	require.Equal(t, "u2", body["userId"])
	require.Equal(t, "654321", body["devOtp"])

	w = serve(r, http.MethodPost, "/signin", gin.H{"email": "asha@example.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	require.Equal(t, "jwt", body["token"])
	require.Equal(t, "asha@example.com", body["user"].(map[string]any)["email"])
	require.NotContains(t, body["user"], "password")
}

func TestVerifyOTP(t *testing.T) {
	svc := &fakeAuth{verifyFn: func(_ context.Context, userID, code string) (*auth.Session, error) {
		if code != "111111" {
			return nil, errutil.BadRequest("Invalid or expired verification code", nil)
		}
		return &auth.Session{Token: "jwt", User: &models.User{Email: "asha@example.com", IsVerified: true}}, nil
	}}

	r := gin.New()
	r.POST("/verify-otp", VerifyOTP(svc))

	w := serve(r, http.MethodPost, "/verify-otp", gin.H{"userId": "u1", "otp": "000000"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid or expired verification code", decode(t, w)["message"])

	w = serve(r, http.MethodPost, "/verify-otp", gin.H{"userId": "u1", "otp": "111111"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "jwt", decode(t, w)["token"])
}

func TestMe(t *testing.T) {
	r := gin.New()
	r.GET("/me", asCaller, Me())

	body := decode(t, serve(r, http.MethodGet, "/me", nil, nil))
	require.Equal(t, caller.Email, body["user"].(map[string]any)["email"])
}
