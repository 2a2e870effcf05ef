package models

import "time"

// Enrollment links one student to one course. Progress, CompletedLessons and
// TotalLessons mirror the matching ProgressRecord.
type Enrollment struct {
	ID               string    `json:"id"`
	StudentID        string    `json:"studentId"`
	StudentName      string    `json:"studentName"`
	StudentEmail     string    `json:"studentEmail"`
	CourseID         string    `json:"courseId"`
	EnrolledAt       time.Time `json:"enrolledAt"`
	Progress         int       `json:"progress"`
	CompletedLessons int       `json:"completedLessons"`
	TotalLessons     int       `json:"totalLessons"`
}
