package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	config "github.com/phillip/lets-hang-go/config"
	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/repository"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type memUsers struct {
	byID map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.byID[u.ID.Hex()] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Save(_ context.Context, u *models.User) error {
	if _, ok := m.byID[u.ID.Hex()]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.byID[u.ID.Hex()] = &cp
	return nil
}

type recordingDispatcher struct {
	msgs []notify.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) {
	d.msgs = append(d.msgs, msg)
}

type fixture struct {
	users      *memUsers
	dispatcher *recordingDispatcher
	svc        *Service
	clock      time.Time
}

func newFixture(emailConfigured bool) *fixture {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: 7 * 24 * time.Hour}
	if emailConfigured {
		cfg.Email.APIURL = "https://api.zeptomail.in/v1.1/email"
		cfg.Email.APIKey = "key"
		cfg.Email.From = "noreply@letshang.app"
	}

	f := &fixture{
		users:      newMemUsers(),
		dispatcher: &recordingDispatcher{},
		clock:      time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	tokens := NewTokens(cfg)
	tokens.now = func() time.Time { return f.clock }
	f.svc = NewService(cfg, f.users, tokens, f.dispatcher)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()
	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, code, be.Code)
}

func (f *fixture) storedOTP(t *testing.T, userID string) string {
	t.Helper()
	u := f.users.byID[userID]
	require.NotNil(t, u.OTP)
	return u.OTP.Code
}

func TestNewOTP(t *testing.T) {
	now := time.Now()
	digits := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 100; i++ {
		otp, err := NewOTP(now)
		require.NoError(t, err)
		require.Regexp(t, digits, otp.Code)
		require.Equal(t, now.Add(10*time.Minute), otp.ExpiresAt)
	}
}

func TestSignupAndVerify_OTPScenario(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, SignupInput{Name: "Asha", Email: "Asha@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Empty(t, res.DevOTP)
	require.Len(t, f.dispatcher.msgs, 1)
	require.Equal(t, notify.KindOTP, f.dispatcher.msgs[0].Kind)
	require.Equal(t, "asha@example.com", f.dispatcher.msgs[0].To)

	code := f.storedOTP(t, res.UserID)
	require.Equal(t, code, f.dispatcher.msgs[0].OTP)

	// expired after 11 minutes
	f.clock = f.clock.Add(11 * time.Minute)
	_, err = f.svc.VerifyOTP(ctx, res.UserID, code)
	requireCode(t, err, errutil.StatusBadRequest)
	require.False(t, f.users.byID[res.UserID].IsVerified)

	_, err = f.svc.ResendOTP(ctx, res.UserID)
	require.NoError(t, err)
	code = f.storedOTP(t, res.UserID)

	_, err = f.svc.VerifyOTP(ctx, res.UserID, "not-it")
	requireCode(t, err, errutil.StatusBadRequest)

	f.clock = f.clock.Add(9 * time.Minute)
	sess, err := f.svc.VerifyOTP(ctx, res.UserID, code)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.True(t, f.users.byID[res.UserID].IsVerified)
	require.Nil(t, f.users.byID[res.UserID].OTP)
	require.Equal(t, notify.KindWelcome, f.dispatcher.msgs[len(f.dispatcher.msgs)-1].Kind)

	// single use
	_, err = f.svc.VerifyOTP(ctx, res.UserID, code)
	requireCode(t, err, errutil.StatusBadRequest)

	userID, err := f.svc.tokens.Parse(sess.Token)
	require.NoError(t, err)
	require.Equal(t, res.UserID, userID)
}

func TestSignup_DevOTPWhenEmailDisabled(t *testing.T) {
	f := newFixture(false)
	res, err := f.svc.Signup(context.Background(), SignupInput{Name: "Ravi", Email: "ravi@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, res.EmailDisabled)
	require.Equal(t, f.storedOTP(t, res.UserID), res.DevOTP)
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	cases := []SignupInput{
		{Name: "", Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "secret1"},
		{Name: "Asha", Email: "not-an-email", Password: "secret1"},
		{Name: "Asha", Email: "a@example.com", Password: "12345"},
	}
	for _, in := range cases {
		_, err := f.svc.Signup(ctx, in)
		requireCode(t, err, errutil.StatusBadRequest)
	}
	require.Empty(t, f.users.byID)
}

func TestSignup_ExistingAccounts(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	first, err := f.svc.Signup(ctx, SignupInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	// unverified: the account is taken over and a new code issued
	again, err := f.svc.Signup(ctx, SignupInput{Name: "Asha K", Email: "asha@example.com", Password: "secret2"})
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, first.UserID, again.UserID)
	require.Equal(t, "Asha K", f.users.byID[first.UserID].Name)
	require.Len(t, f.users.byID, 1)

	_, err = f.svc.VerifyOTP(ctx, first.UserID, f.storedOTP(t, first.UserID))
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, SignupInput{Name: "Asha", Email: "asha@example.com", Password: "secret3"})
	requireCode(t, err, errutil.StatusBadRequest)
}

func TestSignin(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, SignupInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.svc.Signin(ctx, "nobody@example.com", "secret1")
	requireCode(t, err, errutil.StatusUnauthorized)

	pending, err := f.svc.Signin(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	require.True(t, pending.NeedsVerification)
	require.Nil(t, pending.Session)
	require.Equal(t, res.UserID, pending.Pending.UserID)
	require.NotEmpty(t, pending.Pending.DevOTP)

	_, err = f.svc.VerifyOTP(ctx, res.UserID, pending.Pending.DevOTP)
	require.NoError(t, err)

	_, err = f.svc.Signin(ctx, "asha@example.com", "wrong-password")
	requireCode(t, err, errutil.StatusUnauthorized)

	ok, err := f.svc.Signin(ctx, "ASHA@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, ok.Session)
	require.Equal(t, "Asha", ok.Session.User.Name)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, SignupInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	sess, err := f.svc.VerifyOTP(ctx, res.UserID, res.DevOTP)
	require.NoError(t, err)

	u, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, res.UserID, u.ID.Hex())

	_, err = f.svc.Authenticate(ctx, "garbage")
	requireCode(t, err, errutil.StatusUnauthorized)

	f.clock = f.clock.Add(8 * 24 * time.Hour)
	_, err = f.svc.Authenticate(ctx, sess.Token)
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	res, err := f.svc.Signup(ctx, SignupInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	method, upi := models.PaymentMethodUPI, "asha@okbank"
	u, err := f.svc.UpdateProfile(ctx, res.UserID, ProfileInput{PaymentMethod: &method, UPIID: &upi})
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodUPI, u.PaymentMethod)
	require.Equal(t, "asha@okbank", f.users.byID[res.UserID].UPIID)

	bad := "paypal"
	_, err = f.svc.UpdateProfile(ctx, res.UserID, ProfileInput{PaymentMethod: &bad})
	requireCode(t, err, errutil.StatusBadRequest)

	_, err = f.svc.UpdateProfile(ctx, primitive.NewObjectID().Hex(), ProfileInput{})
	requireCode(t, err, errutil.StatusNotFound)
}
