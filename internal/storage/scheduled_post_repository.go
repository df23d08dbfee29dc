package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"crosspost/internal/models"
)

// ScheduledPostRepository 定义了定时帖子数据操作的接口。
type ScheduledPostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) error
	GetByID(ctx context.Context, id uint) (*models.ScheduledPost, error)
	// ListDue returns unposted posts scheduled at or before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)
	MarkPosted(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// gormScheduledPostRepository 使用 GORM 实现 ScheduledPostRepository。
type gormScheduledPostRepository struct {
	db *gorm.DB
}

// NewGormScheduledPostRepository creates a GORM backed ScheduledPostRepository.
func NewGormScheduledPostRepository(db *gorm.DB) ScheduledPostRepository {
	return &gormScheduledPostRepository{db: db}
}

func (r *gormScheduledPostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *gormScheduledPostRepository) GetByID(ctx context.Context, id uint) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *gormScheduledPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	var posts []*models.ScheduledPost
	query := r.db.WithContext(ctx).
		Where("posted = ? AND scheduled_at <= ?", false, now.UTC()).
		Order("scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *gormScheduledPostRepository) MarkPosted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ScheduledPost{}).Where("id = ?", id).Update("posted", true).Error
}

// Delete removes the post; scheduled posts are not kept once sent.
func (r *gormScheduledPostRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ScheduledPost{}, id).Error
}
