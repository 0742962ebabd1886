package models

import "time"

// UserToken is the durable record of every Facebook access token ever seen
// for a provider user. Tokens are never hard-deleted; dead ones are flagged
// so selection skips them while history stays auditable.
type UserToken struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ProviderUserID string     `gorm:"index;type:varchar(191)" json:"provider_user_id"`
	Token          string     `gorm:"uniqueIndex;type:varchar(512)" json:"-"`
	GrantedAt      time.Time  `gorm:"type:timestamp" json:"granted_at"`
	ExpirationDate *time.Time `gorm:"type:timestamp;default:null" json:"expiration_date,omitempty"`
	Deleted        bool       `gorm:"index;default:false" json:"deleted"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsWildcard reports whether the token has no confirmed expiration date yet.
// Such tokens are only trusted for a short window after being granted.
func (t *UserToken) IsWildcard() bool {
	return t.ExpirationDate == nil
}

// FreshWithin reports whether the token was granted within the given window.
func (t *UserToken) FreshWithin(window time.Duration, now time.Time) bool {
	return now.Sub(t.GrantedAt) <= window
}
