package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"faceattend/internal/model"
)

func TestStudentValidation(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		student model.Student
		wantErr string
	}{
		{"valid", model.Student{StudentID: "CS-2024_01", Name: "Mary O'Neil", Email: "m@example.com"}, ""},
		{"missing id", model.Student{Name: "Alice"}, "StudentID is required"},
		{"short id", model.Student{StudentID: "A", Name: "Alice"}, "at least 2"},
		{"bad id chars", model.Student{StudentID: "S 01", Name: "Alice"}, "letters, digits"},
		{"digits in name", model.Student{StudentID: "S01", Name: "Al1ce"}, "letters, spaces"},
		{"bad email", model.Student{StudentID: "S01", Name: "Alice", Email: "nope"}, "valid email"},
		{"long department", model.Student{StudentID: "S01", Name: "Alice", Department: strings.Repeat("x", 101)}, "at most 100"},
		{"long batch", model.Student{StudentID: "S01", Name: "Alice", Batch: strings.Repeat("x", 51)}, "at most 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.student)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
