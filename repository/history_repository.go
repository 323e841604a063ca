package repository

import (
	"context"
	"fmt"

	"AviaxMusic/model"

	"gorm.io/gorm"
)

// HistoryRepository persists and queries playback history.
type HistoryRepository interface {
	Record(ctx context.Context, h *model.PlayHistory) error
	RecentByChat(ctx context.Context, chatID int64, limit int) ([]model.PlayHistory, error)
	TopTracks(ctx context.Context, limit int) ([]TopTrack, error)
}

// TopTrack is an aggregated play count per video.
type TopTrack struct {
	VidID string `json:"vidId"`
	Title string `json:"title"`
	Plays int64  `json:"plays"`
}

type gormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a repository on the given handle.
func NewGormHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db}
}

// Record stores one successful stream start.
func (r *gormHistoryRepository) Record(ctx context.Context, h *model.PlayHistory) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("failed to record play history: %w", err)
	}
	return nil
}

// RecentByChat returns the chat's latest plays, newest first.
func (r *gormHistoryRepository) RecentByChat(ctx context.Context, chatID int64, limit int) ([]model.PlayHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []model.PlayHistory
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent history: %w", err)
	}
	return rows, nil
}

// TopTracks returns the most-played videos across all chats.
func (r *gormHistoryRepository) TopTracks(ctx context.Context, limit int) ([]TopTrack, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []TopTrack
	err := r.db.WithContext(ctx).
		Model(&model.PlayHistory{}).
		Select("vid_id, MAX(title) AS title, COUNT(*) AS plays").
		Where("vid_id <> ''").
		Group("vid_id").
		Order("plays DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks: %w", err)
	}
	return rows, nil
}
