package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/lets-hang-go/middleware"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/services/auth"
)

type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (auth.OTPResult, error)
	VerifyOTP(ctx context.Context, userID, code string) (*auth.Session, error)
	ResendOTP(ctx context.Context, userID string) (auth.OTPResult, error)
	Signin(ctx context.Context, email, password string) (auth.SigninResult, error)
	UpdateProfile(ctx context.Context, userID string, in auth.ProfileInput) (*models.User, error)
}

func otpBody(res auth.OTPResult, msg string) gin.H {
	body := gin.H{"message": msg}
	if res.UserID != "" {
		body["userId"] = res.UserID
	}
	if res.EmailDisabled {
		body["devOtp"] = res.DevOTP
		body["emailDisabled"] = true
	}
	return body
}

// ---------------- SIGNUP ----------------
func Signup(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input auth.SignupInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Please provide name, email and password")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		res, err := svc.Signup(ctx, input)
		if err != nil {
			respondError(c, err, "Failed to create account. Please try again.")
			return
		}

		if !res.Created {
			msg := "Verification code sent to your email"
			if res.EmailDisabled {
				msg = "Email is disabled - use the code shown below"
			}
			ok(c, http.StatusOK, otpBody(res, msg))
			return
		}

		msg := "Account created! Please check your email for the verification code"
		if res.EmailDisabled {
			msg = "Account created! Email is disabled - use the code shown below"
		}
		ok(c, http.StatusCreated, otpBody(res, msg))
	}
}

// ---------------- OTP ----------------
func VerifyOTP(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			UserID string `json:"userId"`
			OTP    string `json:"otp"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Please provide userId and OTP")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		sess, err := svc.VerifyOTP(ctx, input.UserID, input.OTP)
		if err != nil {
			respondError(c, err, "Verification failed. Please try again.")
			return
		}
		ok(c, http.StatusOK, gin.H{"message": "Email verified successfully!", "token": sess.Token, "user": sess.User})
	}
}

func ResendOTP(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			UserID string `json:"userId"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "User ID is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		res, err := svc.ResendOTP(ctx, input.UserID)
		if err != nil {
			respondError(c, err, "Failed to resend code. Please try again.")
			return
		}

		msg := "New verification code sent!"
		if res.EmailDisabled {
			msg = "Email is disabled - use the code shown below"
		}
		body := otpBody(res, msg)
		delete(body, "userId")
		ok(c, http.StatusOK, body)
	}
}

// ---------------- SIGNIN ----------------
func Signin(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Please provide email and password")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		res, err := svc.Signin(ctx, input.Email, input.Password)
		if err != nil {
			respondError(c, err, "Sign in failed. Please try again.")
			return
		}

		if res.NeedsVerification {
			msg := "Please verify your email first. A new code has been sent."
			if res.Pending.EmailDisabled {
				msg = "Please verify your email first. Use the code shown below."
			}
			body := otpBody(res.Pending, msg)
			body["success"] = false
			body["needsVerification"] = true
			c.JSON(http.StatusForbidden, body)
			return
		}

		ok(c, http.StatusOK, gin.H{"message": "Signed in successfully!", "token": res.Session.Token, "user": res.Session.User})
	}
}

// ---------------- PROFILE ----------------
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
	}
}

func UpdateProfile(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input auth.ProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		u, err := svc.UpdateProfile(ctx, c.GetString(middleware.CtxUserID), input)
		if err != nil {
			respondError(c, err, "Failed to update profile")
			return
		}
		ok(c, http.StatusOK, gin.H{"message": "Profile updated successfully", "user": u})
	}
}
