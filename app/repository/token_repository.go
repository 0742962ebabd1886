package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/pozytywnie/facebook-auth/app/models"
	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
)

// tokenRepository implements the TokenRepository interface
type tokenRepository struct {
	db          *gorm.DB
	freshWindow time.Duration
	insertHooks []func(providerUserID string)
}

// NewTokenRepository creates a new token repository instance. The wildcard
// freshness window comes from FRESH_TOKEN_WINDOW_SECONDS (default 30).
func NewTokenRepository(db *gorm.DB) TokenRepository {
	window := time.Duration(env.GetEnvInt("FRESH_TOKEN_WINDOW_SECONDS", 30)) * time.Second
	return &tokenRepository{db: db, freshWindow: window}
}

func (r *tokenRepository) AfterInsert(hook func(providerUserID string)) {
	r.insertHooks = append(r.insertHooks, hook)
}

// InsertToken upserts keyed on the token value (get-or-create semantics so
// the same credential never produces two rows).
func (r *tokenRepository) InsertToken(providerUserID, token string, expirationDate *time.Time) error {
	var row models.UserToken
	err := r.db.Where("token = ?", token).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.UserToken{
			ProviderUserID: providerUserID,
			Token:          token,
			GrantedAt:      time.Now().UTC(),
			ExpirationDate: expirationDate,
		}
		if err := r.db.Create(&row).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if row.ProviderUserID != providerUserID {
			// Ownership stays with the stored row; a monitored anomaly, not a fault.
			log.Warnf("[TokenStore] token ownership mismatch: stored provider user %s, asserted %s", row.ProviderUserID, providerUserID)
		}
		if err := r.db.Model(&row).Update("expiration_date", expirationDate).Error; err != nil {
			return err
		}
	}

	for _, hook := range r.insertHooks {
		hook(row.ProviderUserID)
	}
	return nil
}

func (r *tokenRepository) InvalidateToken(token string) error {
	return r.db.Model(&models.UserToken{}).
		Where("token = ?", token).
		Update("deleted", true).Error
}

func (r *tokenRepository) GetAccessToken(providerUserID string) (*models.UserToken, error) {
	tokens, err := r.ActiveTokens(providerUserID)
	if err != nil {
		return nil, err
	}
	best := SelectBestToken(tokens, time.Now().UTC(), r.freshWindow)
	if best == nil {
		return nil, ErrTokenNotFound
	}
	return best, nil
}

func (r *tokenRepository) ActiveTokens(providerUserID string) ([]models.UserToken, error) {
	var tokens []models.UserToken
	err := r.db.
		Where("provider_user_id = ? AND deleted = ?", providerUserID, false).
		Order("granted_at DESC, id DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *tokenRepository) InvalidateOthers(providerUserID, keepToken string) error {
	return r.db.Model(&models.UserToken{}).
		Where("provider_user_id = ? AND token <> ? AND deleted = ?", providerUserID, keepToken, false).
		Update("deleted", true).Error
}

func (r *tokenRepository) DistinctProviderUserIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&models.UserToken{}).
		Distinct("provider_user_id").
		Order("provider_user_id").
		Pluck("provider_user_id", &ids).Error
	return ids, err
}

func (r *tokenRepository) List(deleted *bool, search string, offset, limit int) ([]models.UserToken, error) {
	query := r.db.Model(&models.UserToken{}).Order("id DESC").Offset(offset).Limit(limit)
	if deleted != nil {
		query = query.Where("deleted = ?", *deleted)
	}
	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + s + "%"
		query = query.Where("token LIKE ? OR provider_user_id LIKE ?", pattern, pattern)
	}
	var tokens []models.UserToken
	err := query.Find(&tokens).Error
	return tokens, err
}

// SelectBestToken picks the single best usable token from active rows.
// A wildcard token (no confirmed expiry) granted within the freshness window
// beats everything, newest first: it is almost certainly the newest, correct
// credential. A wildcard older than the window has had time to be revalidated
// and assigned a concrete expiry; if it wasn't, it is suspect, so dated
// tokens win instead, furthest expiry first. Dated rows are not filtered on
// expiry here; a stale date is for the revalidation pass to confirm and
// retire, not for selection to second-guess. Returns nil when no category
// matches.
func SelectBestToken(tokens []models.UserToken, now time.Time, freshWindow time.Duration) *models.UserToken {
	var freshWildcard *models.UserToken
	for i := range tokens {
		t := &tokens[i]
		if !t.IsWildcard() || !t.FreshWithin(freshWindow, now) {
			continue
		}
		if freshWildcard == nil || t.GrantedAt.After(freshWildcard.GrantedAt) {
			freshWildcard = t
		}
	}
	if freshWildcard != nil {
		return freshWildcard
	}

	var dated *models.UserToken
	for i := range tokens {
		t := &tokens[i]
		if t.IsWildcard() {
			continue
		}
		if dated == nil || t.ExpirationDate.After(*dated.ExpirationDate) {
			dated = t
		}
	}
	return dated
}
