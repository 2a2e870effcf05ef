package models

import "time"

// Submission is a student's answer to an assignment.
type Submission struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"studentId"`
	StudentName string     `json:"studentName"`
	Content     string     `json:"content"`
	SubmittedAt time.Time  `json:"submittedAt"`
	Grade       *float64   `json:"grade,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
	GradedAt    *time.Time `json:"gradedAt,omitempty"`
}

// Assignment belongs to a course and collects submissions.
type Assignment struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	CourseID    string       `json:"courseId"`
	TeacherID   string       `json:"teacherId"`
	DueDate     time.Time    `json:"dueDate"`
	MaxPoints   float64      `json:"maxPoints"`
	Submissions []Submission `json:"submissions"`
	Published   bool         `json:"published"`
	CreatedAt   time.Time    `json:"createdAt"`
}
