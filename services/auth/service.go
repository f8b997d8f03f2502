package auth

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	config "github.com/phillip/lets-hang-go/config"
	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/repository"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
}

type Service struct {
	users        UserStore
	tokens       *Tokens
	dispatcher   notify.Dispatcher
	emailEnabled bool
	now          func() time.Time
}

func NewService(cfg *config.Config, users UserStore, tokens *Tokens, dispatcher notify.Dispatcher) *Service {
	return &Service{
		users:        users,
		tokens:       tokens,
		dispatcher:   dispatcher,
		emailEnabled: cfg.EmailConfigured(),
		now:          time.Now,
	}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPResult is returned wherever a code was issued. DevOTP is only set when
// email delivery is off so local setups can still verify.
type OTPResult struct {
	UserID        string `json:"userId"`
	Created       bool   `json:"-"`
	DevOTP        string `json:"devOtp,omitempty"`
	EmailDisabled bool   `json:"emailDisabled,omitempty"`
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type SigninResult struct {
	Session           *Session
	NeedsVerification bool
	Pending           OTPResult
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ---------------- SIGNUP ----------------

func (s *Service) Signup(ctx context.Context, in SignupInput) (OTPResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" || email == "" || in.Password == "" {
		return OTPResult{}, errutil.BadRequest("Please provide name, email and password", nil)
	}
	if l := len([]rune(name)); l < 2 || l > 50 {
		return OTPResult{}, errutil.BadRequest("Name must be between 2 and 50 characters", nil)
	}
	if !validEmail(email) {
		return OTPResult{}, errutil.BadRequest("Please provide a valid email", nil)
	}
	if len(in.Password) < 6 {
		return OTPResult{}, errutil.BadRequest("Password must be at least 6 characters", nil)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return OTPResult{}, errutil.Internal("Registration failed. Please try again.", err)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsVerified {
			return OTPResult{}, errutil.BadRequest("An account with this email already exists", nil)
		}
		// an unverified account is taken over by the new signup
		existing.Name = name
		existing.Password = hash
		return s.issueOTP(ctx, existing, false)
	case !errors.Is(err, repository.ErrNotFound):
		return OTPResult{}, errutil.Internal("Registration failed. Please try again.", err)
	}

	now := s.now()
	u := &models.User{
		Name:          name,
		Email:         email,
		Password:      hash,
		Avatar:        "https://i.pravatar.cc/150?u=" + url.QueryEscape(email),
		PaymentMethod: models.PaymentMethodNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if u.OTP, err = NewOTP(now); err != nil {
		return OTPResult{}, errutil.Internal("Registration failed. Please try again.", err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return OTPResult{}, errutil.BadRequest("An account with this email already exists", err)
		}
		return OTPResult{}, errutil.Internal("Registration failed. Please try again.", err)
	}

	s.sendOTP(ctx, u)
	return s.otpResult(u, true), nil
}

func (s *Service) issueOTP(ctx context.Context, u *models.User, created bool) (OTPResult, error) {
	otp, err := NewOTP(s.now())
	if err != nil {
		return OTPResult{}, errutil.Internal("Could not generate a verification code", err)
	}
	u.OTP = otp
	u.UpdatedAt = s.now()
	if err := s.users.Save(ctx, u); err != nil {
		return OTPResult{}, errutil.Internal("Could not generate a verification code", err)
	}
	s.sendOTP(ctx, u)
	return s.otpResult(u, created), nil
}

func (s *Service) otpResult(u *models.User, created bool) OTPResult {
	res := OTPResult{UserID: u.ID.Hex(), Created: created}
	if !s.emailEnabled && u.OTP != nil {
		res.DevOTP = u.OTP.Code
		res.EmailDisabled = true
	}
	return res
}

func (s *Service) sendOTP(ctx context.Context, u *models.User) {
	if u.OTP == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, notify.Message{Kind: notify.KindOTP, To: u.Email, Name: u.Name, OTP: u.OTP.Code})
}

// ---------------- VERIFY ----------------

// VerifyOTP marks the account verified and consumes the code.
func (s *Service) VerifyOTP(ctx context.Context, userID, code string) (*Session, error) {
	if userID == "" || code == "" {
		return nil, errutil.BadRequest("Please provide userId and OTP", nil)
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return nil, errutil.BadRequest("Account is already verified", nil)
	}
	if !checkOTP(u.OTP, strings.TrimSpace(code), s.now()) {
		return nil, errutil.BadRequest("Invalid or expired verification code", nil)
	}

	u.IsVerified = true
	u.OTP = nil
	u.UpdatedAt = s.now()
	if err := s.users.Save(ctx, u); err != nil {
		return nil, errutil.Internal("Verification failed. Please try again.", err)
	}

	s.dispatcher.Dispatch(ctx, notify.Message{Kind: notify.KindWelcome, To: u.Email, Name: u.Name})
	return s.session(u)
}

func (s *Service) ResendOTP(ctx context.Context, userID string) (OTPResult, error) {
	if userID == "" {
		return OTPResult{}, errutil.BadRequest("Please provide userId", nil)
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return OTPResult{}, err
	}
	if u.IsVerified {
		return OTPResult{}, errutil.BadRequest("Account is already verified", nil)
	}
	return s.issueOTP(ctx, u, false)
}

// ---------------- SIGNIN ----------------

// Signin checks credentials. Unverified accounts get a fresh code instead of
// a session, before the password is looked at.
func (s *Service) Signin(ctx context.Context, email, password string) (SigninResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return SigninResult{}, errutil.BadRequest("Please provide email and password", nil)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SigninResult{}, errutil.Unauthorized("Invalid email or password", nil)
		}
		return SigninResult{}, errutil.Internal("Sign in failed. Please try again.", err)
	}

	if !u.IsVerified {
		pending, err := s.issueOTP(ctx, u, false)
		if err != nil {
			return SigninResult{}, err
		}
		return SigninResult{NeedsVerification: true, Pending: pending}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return SigninResult{}, errutil.Unauthorized("Invalid email or password", nil)
	}

	sess, err := s.session(u)
	if err != nil {
		return SigninResult{}, err
	}
	return SigninResult{Session: sess}, nil
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return nil, errutil.Internal("Could not create session", err)
	}
	return &Session{Token: token, User: u}, nil
}

// ---------------- PROFILE ----------------

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, errutil.Unauthorized("Not authorized, token failed", err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errutil.Unauthorized("User not found", err)
		}
		return nil, errutil.Internal("Authentication failed", err)
	}
	return u, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.loadUser(ctx, userID)
}

type ProfileInput struct {
	Name          *string             `json:"name"`
	Bio           *string             `json:"bio"`
	Location      *string             `json:"location"`
	Website       *string             `json:"website"`
	Avatar        *string             `json:"avatar"`
	PaymentMethod *string             `json:"paymentMethod"`
	UPIID         *string             `json:"upiId"`
	BankDetails   *models.BankDetails `json:"bankDetails"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if l := len([]rune(name)); l < 2 || l > 50 {
			return nil, errutil.BadRequest("Name must be between 2 and 50 characters", nil)
		}
		u.Name = name
	}
	if in.Bio != nil {
		if len([]rune(*in.Bio)) > 200 {
			return nil, errutil.BadRequest("Bio cannot exceed 200 characters", nil)
		}
		u.Bio = *in.Bio
	}
	if in.Location != nil {
		u.Location = *in.Location
	}
	if in.Website != nil {
		u.Website = *in.Website
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}
	if in.PaymentMethod != nil {
		switch *in.PaymentMethod {
		case models.PaymentMethodUPI, models.PaymentMethodBank, models.PaymentMethodNone:
			u.PaymentMethod = *in.PaymentMethod
		default:
			return nil, errutil.BadRequest("Invalid payment method", nil)
		}
	}
	if in.UPIID != nil {
		u.UPIID = strings.TrimSpace(*in.UPIID)
	}
	if in.BankDetails != nil {
		bd := *in.BankDetails
		bd.IFSCCode = strings.ToUpper(strings.TrimSpace(bd.IFSCCode))
		u.BankDetails = &bd
	}

	u.UpdatedAt = s.now()
	if err := s.users.Save(ctx, u); err != nil {
		return nil, errutil.Internal("Failed to update profile", err)
	}
	return u, nil
}

func (s *Service) loadUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errutil.NotFound("User not found", err)
		}
		zap.L().Error("[AuthService] load user", zap.String("user_id", id), zap.Error(err))
		return nil, errutil.Internal("Something went wrong", err)
	}
	return u, nil
}
