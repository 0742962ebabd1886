package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_DISABLED = "disabled"
)

const (
	maxNameLength  = 150
	maxEmailLength = 200
)

type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ProviderUserID string         `gorm:"uniqueIndex;type:varchar(191)" json:"provider_user_id"`
	Name           string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email          string         `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Password       string         `gorm:"type:text" json:"-"`
	Role           string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status         string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active disabled"`
	Scopes         string         `gorm:"type:text" json:"scopes"` // comma-joined, last known from token debug
	LastLoginAt    *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// ScopeList splits the cached comma-joined scopes into a slice.
func (u *User) ScopeList() []string {
	if strings.TrimSpace(u.Scopes) == "" {
		return nil
	}
	parts := strings.Split(u.Scopes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// HasScope checks the last-known granted scopes. This is a cache of what the
// provider reported during the last token debug, not a live authorization check.
func (u *User) HasScope(scope string) bool {
	for _, s := range u.ScopeList() {
		if s == scope {
			return true
		}
	}
	return false
}

// TruncateName cuts a provider-supplied name to the column length.
func TruncateName(name string) string {
	if len(name) > maxNameLength {
		return name[:maxNameLength]
	}
	return name
}

// TruncateEmail drops over-long emails entirely instead of cutting them,
// a cut email is not a usable address.
func TruncateEmail(email string) string {
	if len(email) > maxEmailLength {
		return ""
	}
	return email
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}
