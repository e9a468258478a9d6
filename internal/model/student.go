package model

import "time"

// Student represents an enrolled student record.
type Student struct {
	ID           int64     `json:"id"`
	StudentID    string    `json:"student_id" validate:"required,min=2,max=50,studentid"`
	Name         string    `json:"name" validate:"required,min=2,max=100,personname"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	Department   string    `json:"department,omitempty" validate:"max=100"`
	Batch        string    `json:"batch,omitempty" validate:"max=50"`
	PhotoPath    string    `json:"photo_path,omitempty"`
	Embedding    []float64 `json:"-"`
	RegisteredAt time.Time `json:"registered_at"`
}

// HasEmbedding reports whether the student can take part in matching.
func (s *Student) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// StudentUpdate carries optional field changes; nil fields are left untouched.
type StudentUpdate struct {
	Name       *string
	Email      *string
	Department *string
	Batch      *string
}
