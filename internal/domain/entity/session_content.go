package entity

import "time"

// SessionContent 待分析的会话内容（转录、笔记）
type SessionContent struct {
	ID          string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	SourceType  string    `json:"source_type" gorm:"type:varchar(32);not null"`
	ContextID   string    `json:"context_id" gorm:"type:varchar(64);index"`
	ContextType string    `json:"context_type" gorm:"type:varchar(32)"`
	Title       string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Body        string    `json:"body" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (SessionContent) TableName() string {
	return "session_contents"
}
