package model

import "time"

// Project owns tasks and optionally belongs to a category.
type Project struct {
	ID                      uint          `gorm:"primaryKey"`
	Name                    string        `gorm:"size:200;not null"`
	Description             *string       `gorm:"type:text"`
	CategoryID              *uint         `gorm:"index"`
	Category                *Category     `gorm:"constraint:OnDelete:SET NULL"`
	Status                  ProjectStatus `gorm:"size:20;index;default:PLANNING"`
	Priority                Priority      `gorm:"size:20;index;default:MEDIUM"`
	StartDate               *Date
	EndDate                 *Date
	EstimatedCompletionDate *Date
	Budget                  *Decimal
	CurrentSpend            Decimal   `gorm:"default:0"`
	CreatedAt               time.Time `gorm:"index"`
	UpdatedAt               time.Time
	Tasks                   []Task `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// Progress returns the share of loaded tasks that are completed, in percent.
func (p *Project) Progress() float64 {
	completed := 0
	for _, t := range p.Tasks {
		if t.Status == TaskCompleted {
			completed++
		}
	}
	return Progress(completed, len(p.Tasks))
}

// IsOverdue reports whether the estimated completion date has passed.
func (p *Project) IsOverdue(today Date) bool {
	return p.EstimatedCompletionDate != nil && p.EstimatedCompletionDate.Before(today)
}

// Progress is completed/total in percent, 0 when there is nothing to complete.
func Progress(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	return float64(completed) / float64(total) * 100
}
