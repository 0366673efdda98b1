// Package domain 用户注册、账户与资料的领域模型
package domain

import (
	"strings"
	"time"

	"github.com/wyfcoding/storefront/pkg/errorsx"
)

// PendingUser 待验证的注册信息，激活后删除
type PendingUser struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"column:email;type:varchar(254);uniqueIndex;not null" json:"email"`
	FirstName     string    `gorm:"column:first_name;type:varchar(100)" json:"first_name"`
	LastName      string    `gorm:"column:last_name;type:varchar(100)" json:"last_name"`
	Phone         string    `gorm:"column:phone;type:varchar(20)" json:"phone"`
	OTP           string    `gorm:"column:otp;type:varchar(6);not null" json:"-"`
	PasswordHash  string    `gorm:"column:password_hash;type:varchar(128);not null" json:"-"`
	EmailVerified bool      `gorm:"column:is_email_verified;not null;default:false" json:"email_verified"`
	OTPCreatedAt  time.Time `gorm:"column:otp_created_at;index;not null" json:"otp_created_at"`
}

// TableName 指定表名
func (PendingUser) TableName() string { return "pending_users" }

// Expired 验证码是否已过期
func (p *PendingUser) Expired(now time.Time, ttl time.Duration) bool {
	return p.OTPCreatedAt.Before(now.Add(-ttl))
}

// User 已激活的账户，用户名即邮箱
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"column:username;type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"column:email;type:varchar(254);uniqueIndex;not null" json:"email"`
	FirstName    string    `gorm:"column:first_name;type:varchar(100)" json:"first_name"`
	LastName     string    `gorm:"column:last_name;type:varchar(100)" json:"last_name"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(128);not null" json:"-"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsStaff      bool      `gorm:"column:is_staff;not null;default:false" json:"is_staff"`
	CreatedAt    time.Time `json:"date_joined"`
	UpdatedAt    time.Time `json:"-"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// FullName 姓名，均为空时返回用户名
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Profile 用户资料
type Profile struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	UserID uint   `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Phone  string `gorm:"column:phone;type:varchar(20)" json:"phone"`
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// NormalizeEmail 小写并去除首尾空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	ErrMissingFields     = errorsx.New(errorsx.KindValidation, "MISSING_FIELDS", "Please fill all required fields")
	ErrPasswordMismatch  = errorsx.New(errorsx.KindValidation, "PASSWORD_MISMATCH", "Passwords do not match")
	ErrEmailTaken        = errorsx.New(errorsx.KindConflict, "EMAIL_TAKEN", "Email is already registered or pending verification")
	ErrPendingNotFound   = errorsx.New(errorsx.KindNotFound, "REGISTRATION_NOT_FOUND", "Registration not found or expired. Please register again.")
	ErrInvalidOTP        = errorsx.New(errorsx.KindValidation, "INVALID_OTP", "Invalid OTP")
	ErrAlreadyVerified   = errorsx.New(errorsx.KindConflict, "ALREADY_VERIFIED", "Email is already verified. Check your inbox for the activation link.")
	ErrInvalidActivation = errorsx.New(errorsx.KindValidation, "INVALID_ACTIVATION", "Activation link is invalid or has expired")
	ErrUserNotFound      = errorsx.New(errorsx.KindNotFound, "USER_NOT_FOUND", "No user with this email")
	ErrInvalidPassword   = errorsx.New(errorsx.KindUnauthorized, "INVALID_PASSWORD", "Invalid password")
	ErrUserDisabled      = errorsx.New(errorsx.KindForbidden, "USER_DISABLED", "User account is disabled")
	ErrProfileNotFound   = errorsx.New(errorsx.KindNotFound, "PROFILE_NOT_FOUND", "Profile not found")
)
