package model

import "time"

// PlayHistory records one successful stream start.
type PlayHistory struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID     int64      `gorm:"column:chat_id;index" json:"chatId"`
	VidID      string     `gorm:"column:vid_id;size:64" json:"vidId"`
	Title      string     `gorm:"size:255" json:"title"`
	By         string     `gorm:"column:requested_by;size:128" json:"by"`
	StreamType StreamType `gorm:"column:stream_type;size:8" json:"streamType"`
	Duration   int        `json:"duration"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// TableName pins the gorm table name.
func (PlayHistory) TableName() string {
	return "play_history"
}
