package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository implementations
type Repositories struct {
	User  UserRepository
	Token TokenRepository
}

// NewRepositories creates all repositories sharing one gorm handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Token: NewTokenRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetTokenRepository returns the token repository instance
func (f *Factory) GetTokenRepository() TokenRepository {
	return f.GetRepositories().Token
}
