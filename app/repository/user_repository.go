package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pozytywnie/facebook-auth/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByProviderUserID retrieves a user by their remote provider identity
func (r *userRepository) GetByProviderUserID(providerUserID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("provider_user_id = ?", providerUserID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateByProviderUserID resolves the local account for a provider
// identity, creating it on first login. The second return value reports
// whether a new row was created.
func (r *userRepository) GetOrCreateByProviderUserID(providerUserID string) (*models.User, bool, error) {
	user := models.User{
		ProviderUserID: providerUserID,
		Role:           models.ROLE_USER,
		Status:         models.STATUS_ACTIVE,
	}
	res := r.db.Where(models.User{ProviderUserID: providerUserID}).FirstOrCreate(&user)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &user, res.RowsAffected > 0, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateScopes caches the last-known granted scopes, comma-joined.
func (r *userRepository) UpdateScopes(providerUserID string, scopes []string) error {
	return r.db.Model(&models.User{}).
		Where("provider_user_id = ?", providerUserID).
		Update("scopes", strings.Join(scopes, ",")).Error
}

// TouchLastLogin stamps the login time without touching other columns.
func (r *userRepository) TouchLastLogin(id uint) error {
	return r.db.Model(&models.User{ID: id}).
		UpdateColumn("last_login_at", time.Now()).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
