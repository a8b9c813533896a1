package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
)

// FindByIDForUser loads one blog post owned by the given user.
func (r *BlogRepository) FindByIDForUser(ctx context.Context, tx *gorm.DB, postID, userID uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", postID, userID).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// MarkSponsored flips the sponsored flag on a blog post.
func (r *BlogRepository) MarkSponsored(ctx context.Context, tx *gorm.DB, postID uuid.UUID) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.BlogPost{}).
		Where("id = ?", postID).
		Update("is_sponsored", true).Error
}
