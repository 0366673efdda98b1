// Package application 用户应用服务：注册验证、激活、登录校验与资料查询
package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/storefront/internal/user/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

// DefaultOTPTTL 待验证注册的有效期
const DefaultOTPTTL = 5 * time.Minute

// TxManager 事务管理
type TxManager interface {
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Mailer 注册流程的邮件端口，发送失败不影响注册
type Mailer interface {
	SendOTP(ctx context.Context, email, firstName, otp string, ttl time.Duration)
	SendActivation(ctx context.Context, email, firstName, link string)
}

// RegistrationConfig 注册配置
type RegistrationConfig struct {
	// Secret 激活令牌签名密钥
	Secret     string
	OTPTTL     time.Duration
	BcryptCost int
	// BaseURL 激活链接前缀
	BaseURL string
}

// RegisterCommand 注册命令
type RegisterCommand struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Password1 string
	Password2 string
}

// ActivationLink 激活链接
type ActivationLink struct {
	UID   string
	Token string
	URL   string
}

// RegistrationService 注册、验证码校验与账户激活
type RegistrationService struct {
	tx      TxManager
	pending domain.PendingUserRepository
	users   domain.UserRepository
	mailer  Mailer
	cfg     RegistrationConfig
	now     func() time.Time
	otp     func() (string, error)
}

// NewRegistrationService 创建注册服务
func NewRegistrationService(tx TxManager, pending domain.PendingUserRepository, users domain.UserRepository, mailer Mailer, cfg RegistrationConfig) *RegistrationService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = DefaultOTPTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &RegistrationService{
		tx:      tx,
		pending: pending,
		users:   users,
		mailer:  mailer,
		cfg:     cfg,
		now:     time.Now,
		otp:     func() (string, error) { return utils.RandomDigits(6) },
	}
}

// WithClock 替换时钟与验证码生成器
func (s *RegistrationService) WithClock(now func() time.Time, otp func() (string, error)) *RegistrationService {
	if now != nil {
		s.now = now
	}
	if otp != nil {
		s.otp = otp
	}
	return s
}

// OTPTTL 验证码有效期
func (s *RegistrationService) OTPTTL() time.Duration { return s.cfg.OTPTTL }

// Register 创建待验证注册并发送验证码
func (s *RegistrationService) Register(ctx context.Context, cmd RegisterCommand) (*domain.PendingUser, error) {
	s.purgeExpired(ctx)

	email := domain.NormalizeEmail(cmd.Email)
	if email == "" || cmd.Password1 == "" {
		return nil, domain.ErrMissingFields
	}
	if cmd.Password1 != cmd.Password2 {
		return nil, domain.ErrPasswordMismatch
	}
	if taken, err := s.emailTaken(ctx, email); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.ErrEmailTaken
	}

	otp, err := s.otp()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password1), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p := &domain.PendingUser{
		Email:        email,
		FirstName:    strings.TrimSpace(cmd.FirstName),
		LastName:     strings.TrimSpace(cmd.LastName),
		Phone:        strings.TrimSpace(cmd.Phone),
		OTP:          otp,
		PasswordHash: string(hash),
		OTPCreatedAt: s.now().UTC(),
	}
	if err := s.pending.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.Info(ctx, "registration pending", "pending_id", p.ID, "email", email)

	s.mailer.SendOTP(ctx, email, p.FirstName, otp, s.cfg.OTPTTL)
	return p, nil
}

// VerifyOTP 校验验证码，通过后发送激活链接
func (s *RegistrationService) VerifyOTP(ctx context.Context, email, otp string) (*ActivationLink, error) {
	s.purgeExpired(ctx)

	p, err := s.pending.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(p.OTP), []byte(strings.TrimSpace(otp))) {
		return nil, domain.ErrInvalidOTP
	}

	p.EmailVerified = true
	if err := s.pending.Save(ctx, p); err != nil {
		return nil, err
	}

	link := s.activationLink(p)
	s.mailer.SendActivation(ctx, p.Email, p.FirstName, link.URL)
	logger.Info(ctx, "registration email verified", "pending_id", p.ID)
	return link, nil
}

// ResendOTP 为未验证的注册重新生成验证码
func (s *RegistrationService) ResendOTP(ctx context.Context, email string) error {
	s.purgeExpired(ctx)

	p, err := s.pending.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if p.EmailVerified {
		return domain.ErrAlreadyVerified
	}
	otp, err := s.otp()
	if err != nil {
		return err
	}
	p.OTP = otp
	p.OTPCreatedAt = s.now().UTC()
	if err := s.pending.Save(ctx, p); err != nil {
		return err
	}
	s.mailer.SendOTP(ctx, p.Email, p.FirstName, otp, s.cfg.OTPTTL)
	return nil
}

// Activate 校验激活令牌，创建账户与资料并删除待验证记录
func (s *RegistrationService) Activate(ctx context.Context, uid, token string) (*domain.User, error) {
	s.purgeExpired(ctx)

	id, err := decodeUID(uid)
	if err != nil {
		return nil, domain.ErrInvalidActivation
	}
	p, err := s.pending.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPendingNotFound) {
			return nil, domain.ErrInvalidActivation
		}
		return nil, err
	}
	if !p.EmailVerified || !hmac.Equal([]byte(s.activationToken(p)), []byte(token)) {
		return nil, domain.ErrInvalidActivation
	}

	var user *domain.User
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.users.ExistsEmail(txCtx, p.Email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrInvalidActivation
		}
		user = &domain.User{
			Username:     p.Email,
			Email:        p.Email,
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			PasswordHash: p.PasswordHash,
			IsActive:     true,
		}
		if err := s.users.Create(txCtx, user); err != nil {
			return err
		}
		if err := s.users.SaveProfile(txCtx, &domain.Profile{UserID: user.ID, Phone: p.Phone}); err != nil {
			return err
		}
		return s.pending.Delete(txCtx, p.ID)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "account activated", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *RegistrationService) emailTaken(ctx context.Context, email string) (bool, error) {
	if exists, err := s.users.ExistsEmail(ctx, email); err != nil || exists {
		return exists, err
	}
	return s.pending.ExistsEmail(ctx, email)
}

// purgeExpired 清理过期注册，失败只记录
func (s *RegistrationService) purgeExpired(ctx context.Context) {
	n, err := s.pending.DeleteCreatedBefore(ctx, s.now().UTC().Add(-s.cfg.OTPTTL))
	if err != nil {
		logger.Warn(ctx, "failed to purge expired registrations", "error", err)
		return
	}
	if n > 0 {
		logger.Debug(ctx, "expired registrations purged", "count", n)
	}
}

func (s *RegistrationService) activationLink(p *domain.PendingUser) *ActivationLink {
	uid := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(p.ID), 10)))
	token := s.activationToken(p)
	return &ActivationLink{
		UID:   uid,
		Token: token,
		URL:   fmt.Sprintf("%s/activate/%s/%s", s.cfg.BaseURL, uid, token),
	}
}

// activationToken HMAC-SHA256(id|email|otp_created_at)
func (s *RegistrationService) activationToken(p *domain.PendingUser) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Secret))
	fmt.Fprintf(mac, "%d|%s|%d", p.ID, p.Email, p.OTPCreatedAt.Unix())
	return hex.EncodeToString(mac.Sum(nil))
}

func decodeUID(uid string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid uid %q", uid)
	}
	return uint(id), nil
}
