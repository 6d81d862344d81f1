package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return d.db.WithContext(ctx).Create(user).Error
}

func (d *Database) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (d *Database) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (d *Database) UpdateLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_seen", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserPresence writes the durable online flag. lastSeen is only written
// when non-nil.
func (d *Database) SetUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen *time.Time) error {
	updates := map[string]interface{}{"is_online": online}
	if lastSeen != nil {
		updates["last_seen"] = *lastSeen
	}

	res := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetPresence marks every online user offline.
func (d *Database) ResetPresence(ctx context.Context, at time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Model(&models.User{}).
		Where("is_online = ?", true).
		Updates(map[string]interface{}{"is_online": false, "last_seen": at})
	return res.RowsAffected, res.Error
}
