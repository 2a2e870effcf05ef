package dto

import "github.com/noah-isme/lms-api/internal/models"

// StudentDashboardResponse bundles everything the student landing page renders.
type StudentDashboardResponse struct {
	StudentID    string                      `json:"studentId"`
	Courses      []models.CourseWithProgress `json:"courses"`
	Summary      models.ProgressSummary      `json:"summary"`
	Streak       int                         `json:"streak"`
	Achievements []models.Achievement        `json:"achievements"`
	StoreVersion uint64                      `json:"storeVersion"`
}

// TeacherDashboardResponse summarises the teacher's courses.
type TeacherDashboardResponse struct {
	TeacherID string               `json:"teacherId"`
	Courses   []TeacherCourseStats `json:"courses"`
}

// TeacherCourseStats aggregates one owned course.
type TeacherCourseStats struct {
	CourseID            string `json:"courseId"`
	Title               string `json:"title"`
	Published           bool   `json:"published"`
	EnrolledCount       int    `json:"enrolledCount"`
	CompletedCount      int    `json:"completedCount"`
	AverageProgress     int    `json:"averageProgress"`
	AssignmentCount     int    `json:"assignmentCount"`
	UngradedSubmissions int    `json:"ungradedSubmissions"`
}
