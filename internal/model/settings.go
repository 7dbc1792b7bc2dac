package model

// UserSettings keeps per-user display preferences. There is at most one row
// per user.
type UserSettings struct {
	ID                   uint          `gorm:"primaryKey" json:"-"`
	UserID               uint          `gorm:"uniqueIndex;not null" json:"-"`
	DefaultProjectStatus ProjectStatus `gorm:"size:20;default:IN_PROGRESS" json:"default_project_status"`
	DefaultPriority      Priority      `gorm:"size:20;default:MEDIUM" json:"default_priority"`
	ShowCompletedTasks   bool          `gorm:"default:true" json:"show_completed_tasks"`
	EnableTemplates      bool          `gorm:"default:false" json:"enable_templates"`
	Theme                string        `gorm:"size:20;default:light" json:"theme"`
	Language             string        `gorm:"size:10;default:en" json:"language"`
	DateFormat           string        `gorm:"size:20;default:MM/DD/YYYY" json:"date_format"`
	RefreshInterval      int           `gorm:"default:60" json:"refresh_interval"`
	ItemsPerPage         int           `gorm:"default:25" json:"items_per_page"`
	EnableAnimations     bool          `gorm:"default:true" json:"enable_animations"`
	TelegramChatID       int64         `gorm:"default:0" json:"telegram_chat_id"`
}

// DefaultUserSettings mirrors the column defaults so new rows are explicit.
func DefaultUserSettings(userID uint) UserSettings {
	return UserSettings{
		UserID:               userID,
		DefaultProjectStatus: ProjectInProgress,
		DefaultPriority:      PriorityMedium,
		ShowCompletedTasks:   true,
		Theme:                "light",
		Language:             "en",
		DateFormat:           "MM/DD/YYYY",
		RefreshInterval:      60,
		ItemsPerPage:         25,
		EnableAnimations:     true,
	}
}
