package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wyfcoding/storefront/internal/user/application"
	"github.com/wyfcoding/storefront/internal/user/domain"
	"github.com/wyfcoding/storefront/internal/user/infrastructure/persistence"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
	"golang.org/x/crypto/bcrypt"
)

type sentOTP struct {
	email string
	otp   string
	ttl   time.Duration
}

type fakeMailer struct {
	otps  []sentOTP
	links []string
}

func (m *fakeMailer) SendOTP(_ context.Context, email, _ string, otp string, ttl time.Duration) {
	m.otps = append(m.otps, sentOTP{email: email, otp: otp, ttl: ttl})
}

func (m *fakeMailer) SendActivation(_ context.Context, _ string, _ string, link string) {
	m.links = append(m.links, link)
}

type UserSuite struct {
	suite.Suite
	ctx          context.Context
	clock        time.Time
	nextOTP      string
	mailer       *fakeMailer
	users        domain.UserRepository
	pending      domain.PendingUserRepository
	registration *application.RegistrationService
	accounts     *application.AccountService
}

func TestUserSuite(t *testing.T) {
	suite.Run(t, new(UserSuite))
}

func (s *UserSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.nextOTP = "123456"
	s.mailer = &fakeMailer{}

	database := dbtest.Open(s.T(), persistence.Models()...)
	s.users = persistence.NewUserRepository(database.DB)
	s.pending = persistence.NewPendingUserRepository(database.DB)
	s.registration = application.NewRegistrationService(database, s.pending, s.users, s.mailer, application.RegistrationConfig{
		Secret:     "test-secret",
		OTPTTL:     5 * time.Minute,
		BcryptCost: bcrypt.MinCost,
		BaseURL:    "http://shop.test/",
	}).WithClock(
		func() time.Time { return s.clock },
		func() (string, error) { return s.nextOTP, nil },
	)
	s.accounts = application.NewAccountService(database, s.users, bcrypt.MinCost)
}

func (s *UserSuite) register(email string) *domain.PendingUser {
	p, err := s.registration.Register(s.ctx, application.RegisterCommand{
		FirstName: "Asha",
		LastName:  "Rao",
		Phone:     "9876543210",
		Email:     email,
		Password1: "s3cret-pass",
		Password2: "s3cret-pass",
	})
	s.Require().NoError(err)
	return p
}

func (s *UserSuite) activate(email string) *domain.User {
	s.register(email)
	link, err := s.registration.VerifyOTP(s.ctx, email, s.nextOTP)
	s.Require().NoError(err)
	u, err := s.registration.Activate(s.ctx, link.UID, link.Token)
	s.Require().NoError(err)
	return u
}

func (s *UserSuite) TestRegisterValidation() {
	_, err := s.registration.Register(s.ctx, application.RegisterCommand{Email: "  ", Password1: "x", Password2: "x"})
	s.True(errors.Is(err, domain.ErrMissingFields))

	_, err = s.registration.Register(s.ctx, application.RegisterCommand{Email: "a@b.com", Password1: "x", Password2: "y"})
	s.True(errors.Is(err, domain.ErrPasswordMismatch))
	s.Equal("Passwords do not match", domain.ErrPasswordMismatch.Message)
	s.Empty(s.mailer.otps)
}

func (s *UserSuite) TestRegisterNormalizesAndSendsOTP() {
	p := s.register("  Asha@Example.COM ")
	s.Equal("asha@example.com", p.Email)
	s.False(p.EmailVerified)
	s.NotEqual("s3cret-pass", p.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("s3cret-pass")))

	s.Require().Len(s.mailer.otps, 1)
	s.Equal(sentOTP{email: "asha@example.com", otp: "123456", ttl: 5 * time.Minute}, s.mailer.otps[0])

	_, err := s.registration.Register(s.ctx, application.RegisterCommand{
		Email: "asha@example.com", Password1: "a", Password2: "a",
	})
	s.True(errors.Is(err, domain.ErrEmailTaken), "pending email cannot register twice")
}

func (s *UserSuite) TestVerifyOTP() {
	s.register("asha@example.com")

	_, err := s.registration.VerifyOTP(s.ctx, "asha@example.com", "000000")
	s.True(errors.Is(err, domain.ErrInvalidOTP))

	_, err = s.registration.VerifyOTP(s.ctx, "nobody@example.com", "123456")
	s.True(errors.Is(err, domain.ErrPendingNotFound))

	link, err := s.registration.VerifyOTP(s.ctx, "ASHA@example.com", " 123456 ")
	s.Require().NoError(err)
	s.True(strings.HasPrefix(link.URL, "http://shop.test/activate/"+link.UID+"/"+link.Token))
	s.Len(link.Token, 64)
	s.Equal([]string{link.URL}, s.mailer.links)

	p, err := s.pending.GetByEmail(s.ctx, "asha@example.com")
	s.Require().NoError(err)
	s.True(p.EmailVerified)

	err = s.registration.ResendOTP(s.ctx, "asha@example.com")
	s.True(errors.Is(err, domain.ErrAlreadyVerified))
}

func (s *UserSuite) TestExpiredRegistrationIsPurged() {
	s.register("asha@example.com")

	s.clock = s.clock.Add(4 * time.Minute)
	_, err := s.pending.GetByEmail(s.ctx, "asha@example.com")
	s.Require().NoError(err)

	s.clock = s.clock.Add(2 * time.Minute)
	_, err = s.registration.VerifyOTP(s.ctx, "asha@example.com", "123456")
	s.True(errors.Is(err, domain.ErrPendingNotFound))

	// 过期后同一邮箱可以重新注册
	s.register("asha@example.com")
}

func (s *UserSuite) TestResendOTPRegeneratesCode() {
	s.register("asha@example.com")

	s.clock = s.clock.Add(4 * time.Minute)
	s.nextOTP = "654321"
	s.Require().NoError(s.registration.ResendOTP(s.ctx, "asha@example.com"))
	s.Require().Len(s.mailer.otps, 2)
	s.Equal("654321", s.mailer.otps[1].otp)

	// 重发刷新时间戳，原注册时间已超过有效期
	s.clock = s.clock.Add(3 * time.Minute)
	_, err := s.registration.VerifyOTP(s.ctx, "asha@example.com", "123456")
	s.True(errors.Is(err, domain.ErrInvalidOTP))
	_, err = s.registration.VerifyOTP(s.ctx, "asha@example.com", "654321")
	s.NoError(err)

	err = s.registration.ResendOTP(s.ctx, "nobody@example.com")
	s.True(errors.Is(err, domain.ErrPendingNotFound))
}

func (s *UserSuite) TestActivate() {
	s.register("asha@example.com")

	_, err := s.registration.Activate(s.ctx, "not-base64!", "x")
	s.True(errors.Is(err, domain.ErrInvalidActivation))

	link, err := s.registration.VerifyOTP(s.ctx, "asha@example.com", "123456")
	s.Require().NoError(err)

	_, err = s.registration.Activate(s.ctx, link.UID, strings.Repeat("0", 64))
	s.True(errors.Is(err, domain.ErrInvalidActivation))

	u, err := s.registration.Activate(s.ctx, link.UID, link.Token)
	s.Require().NoError(err)
	s.Equal("asha@example.com", u.Username)
	s.True(u.IsActive)
	s.False(u.IsStaff)

	phone, err := s.accounts.Phone(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("9876543210", phone)

	_, err = s.pending.GetByEmail(s.ctx, "asha@example.com")
	s.True(errors.Is(err, domain.ErrPendingNotFound))

	_, err = s.registration.Activate(s.ctx, link.UID, link.Token)
	s.True(errors.Is(err, domain.ErrInvalidActivation), "link is single use")

	_, err = s.registration.Register(s.ctx, application.RegisterCommand{
		Email: "asha@example.com", Password1: "a", Password2: "a",
	})
	s.True(errors.Is(err, domain.ErrEmailTaken))
}

func (s *UserSuite) TestActivateRejectsForeignOrUnverified() {
	s.register("asha@example.com")
	s.register("ravi@example.com")

	asha, err := s.registration.VerifyOTP(s.ctx, "asha@example.com", "123456")
	s.Require().NoError(err)
	ravi, err := s.registration.VerifyOTP(s.ctx, "ravi@example.com", "123456")
	s.Require().NoError(err)

	_, err = s.registration.Activate(s.ctx, asha.UID, ravi.Token)
	s.True(errors.Is(err, domain.ErrInvalidActivation))

	p, err := s.pending.GetByEmail(s.ctx, "asha@example.com")
	s.Require().NoError(err)
	p.EmailVerified = false
	s.Require().NoError(s.pending.Save(s.ctx, p))

	_, err = s.registration.Activate(s.ctx, asha.UID, asha.Token)
	s.True(errors.Is(err, domain.ErrInvalidActivation))
	_, err = s.users.GetByEmail(s.ctx, "asha@example.com")
	s.True(errors.Is(err, domain.ErrUserNotFound))
}

func (s *UserSuite) TestAuthenticate() {
	u := s.activate("asha@example.com")

	got, err := s.accounts.Authenticate(s.ctx, "Asha@Example.com", "s3cret-pass")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)

	_, err = s.accounts.Authenticate(s.ctx, "asha@example.com", "wrong")
	s.True(errors.Is(err, domain.ErrInvalidPassword))

	_, err = s.accounts.Authenticate(s.ctx, "ghost@example.com", "s3cret-pass")
	s.True(errors.Is(err, domain.ErrUserNotFound))
	s.Equal("No user with this email", domain.ErrUserNotFound.Message)

	_, err = s.accounts.Authenticate(s.ctx, "", "")
	s.True(errors.Is(err, domain.ErrMissingFields))

	s.Require().NoError(s.accounts.SetActive(s.ctx, u.ID, false))
	_, err = s.accounts.Authenticate(s.ctx, "asha@example.com", "s3cret-pass")
	s.True(errors.Is(err, domain.ErrUserDisabled))
}

func (s *UserSuite) TestAuthenticateByUsername() {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, &domain.User{
		Username: "warehouse", Email: "warehouse@example.com", PasswordHash: string(hash), IsActive: true,
	}))

	u, err := s.accounts.Authenticate(s.ctx, "warehouse", "pw")
	s.Require().NoError(err)
	s.Equal("warehouse@example.com", u.Email)
}

func (s *UserSuite) TestContactAndProfile() {
	u := s.activate("asha@example.com")

	contact, err := s.accounts.Contact(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(application.Contact{
		UserID: u.ID, Email: "asha@example.com", FirstName: "Asha", LastName: "Rao", Phone: "9876543210",
	}, *contact)

	s.Require().NoError(s.accounts.UpdatePhone(s.ctx, u.ID, " 9000000001 "))
	view, err := s.accounts.Profile(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("9000000001", view.Phone)
	s.Equal("Asha Rao", view.User.FullName())

	_, err = s.accounts.Contact(s.ctx, 999)
	s.True(errors.Is(err, domain.ErrUserNotFound))
}

func (s *UserSuite) TestFindIDsByEmail() {
	a := s.activate("asha@example.com")
	b := s.activate("ravi@example.com")

	ids, err := s.accounts.FindIDsByEmail(s.ctx, "ASHA")
	s.Require().NoError(err)
	s.Equal([]uint{a.ID}, ids)

	ids, err = s.accounts.FindIDsByEmail(s.ctx, "example.com")
	s.Require().NoError(err)
	s.ElementsMatch([]uint{a.ID, b.ID}, ids)

	ids, err = s.accounts.FindIDsByEmail(s.ctx, " ")
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *UserSuite) TestEnsureStaff() {
	admin, err := s.accounts.EnsureStaff(s.ctx, "Admin@Example.com", "admin-pass", "Admin")
	s.Require().NoError(err)
	s.True(admin.IsStaff)
	s.Equal("admin@example.com", admin.Username)

	again, err := s.accounts.EnsureStaff(s.ctx, "admin@example.com", "new-pass", "Admin")
	s.Require().NoError(err)
	s.Equal(admin.ID, again.ID)

	_, err = s.accounts.Authenticate(s.ctx, "admin@example.com", "new-pass")
	s.NoError(err)

	u := s.activate("asha@example.com")
	s.Require().NoError(s.accounts.SetStaff(s.ctx, u.ID, true))
	got, err := s.accounts.Get(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(got.IsStaff)
}
