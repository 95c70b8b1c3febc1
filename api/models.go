package api

import "time"

// DateLayout is the wire format of habit log dates.
const DateLayout = "2006-01-02"

type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	Progress    int        `json:"progress" validate:"gte=0,lte=100"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Habit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=200"`
	Frequency string    `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	Log       []string  `json:"log,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required,max=200"`
	Content   string    `json:"content,omitempty"`
	Tags      []string  `json:"tags,omitempty" validate:"dive,max=50"`
	CreatedAt time.Time `json:"created_at"`
}
