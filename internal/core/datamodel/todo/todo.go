package todo

import "time"

type ToDo struct {
	ID        int64     `gorm:"primaryKey"`
	Body      string    `gorm:"column:body;type:text;not null"`
	BodyHTML  string    `gorm:"column:body_html;type:text"`
	Timestamp time.Time `gorm:"column:timestamp;index;not null"`
	UserID    int64     `gorm:"column:user_id;index;not null"`
}

func (ToDo) TableName() string {
	return "todos"
}
