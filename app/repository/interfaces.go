package repository

import (
	"errors"
	"time"

	"github.com/pozytywnie/facebook-auth/app/models"
)

// ErrTokenNotFound is returned when no usable access token exists for a
// provider user.
var ErrTokenNotFound = errors.New("no usable access token")

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByProviderUserID(providerUserID string) (*models.User, error)
	GetOrCreateByProviderUserID(providerUserID string) (*models.User, bool, error)
	Update(user *models.User) error
	UpdateScopes(providerUserID string, scopes []string) error
	TouchLastLogin(id uint) error
	Count() (int64, error)
}

// TokenRepository is the durable store of provider access tokens plus the
// selection of the single best currently-usable one.
type TokenRepository interface {
	// InsertToken upserts keyed on the token value. An existing row keeps its
	// original owner even when providerUserID disagrees; only the expiration
	// date is overwritten (null included).
	InsertToken(providerUserID, token string, expirationDate *time.Time) error
	// InvalidateToken soft-deletes the row; missing tokens are a no-op.
	InvalidateToken(token string) error
	// GetAccessToken picks the best usable token or fails with ErrTokenNotFound.
	GetAccessToken(providerUserID string) (*models.UserToken, error)
	// ActiveTokens returns the non-deleted rows for a provider user.
	ActiveTokens(providerUserID string) ([]models.UserToken, error)
	// InvalidateOthers soft-deletes every active token except keepToken.
	InvalidateOthers(providerUserID, keepToken string) error
	DistinctProviderUserIDs() ([]string, error)
	// List is the admin listing: optional deleted filter and token/user search.
	List(deleted *bool, search string, offset, limit int) ([]models.UserToken, error)
	// AfterInsert registers a hook fired after every successful InsertToken
	// with the row's owning provider user id.
	AfterInsert(hook func(providerUserID string))
}
