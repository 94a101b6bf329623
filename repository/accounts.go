package repository

import (
	"context"
	"strings"
	"time"

	"cozzyhub/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return translate(s.DB.WithContext(ctx).Create(u).Error)
}

// DeleteUser removes a credentials row. Deleting a missing user is not an error.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return translate(s.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	return translate(s.DB.WithContext(ctx).Create(p).Error)
}

func (s *Store) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProfileByAuthToken(ctx context.Context, token string) (*models.Profile, error) {
	var p models.Profile
	if err := s.DB.WithContext(ctx).Where("auth_token = ?", token).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// LookupAuthToken returns nil when some profile holds token, ErrNotFound otherwise.
func (s *Store) LookupAuthToken(ctx context.Context, token string) error {
	var p models.Profile
	err := s.DB.WithContext(ctx).
		Select("id").
		Where("auth_token = ?", token).
		First(&p).Error
	return translate(err)
}

// MarkAuthorized flips an unauthorized profile to authorized. A profile that
// is already authorized keeps its original authorized_at.
func (s *Store) MarkAuthorized(ctx context.Context, id string, at time.Time) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND is_authorized = ?", id, false).
		Updates(map[string]any{
			"is_authorized": true,
			"authorized_at": at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}
