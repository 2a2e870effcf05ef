package models

import (
	"math"
	"time"
)

// ProgressRecord holds the authoritative lesson counters for a (student, course) pair.
type ProgressRecord struct {
	StudentID        string    `json:"studentId"`
	CourseID         string    `json:"courseId"`
	CompletedLessons int       `json:"completedLessons"`
	TotalLessons     int       `json:"totalLessons"`
	LastAccessed     time.Time `json:"lastAccessed"`
}

// KeySeparator joins the parts of a progress key.
const KeySeparator = ":"

// ProgressKey builds the composite key progress records are stored under.
// Neither ID may contain KeySeparator; course IDs are UUIDs and identity IDs
// are checked when tokens are validated.
func ProgressKey(studentID, courseID string) string {
	return studentID + KeySeparator + courseID
}

// Key returns the composite key of the record.
func (p ProgressRecord) Key() string {
	return ProgressKey(p.StudentID, p.CourseID)
}

// Percentage derives round(completed/total*100); zero when the course has no lessons.
func (p ProgressRecord) Percentage() int {
	return Percent(p.CompletedLessons, p.TotalLessons)
}

// Percent rounds part/whole to a whole percentage.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// ProgressPatch is a partial update merged into a ProgressRecord.
type ProgressPatch struct {
	CompletedLessons *int `json:"completedLessons" validate:"omitempty,min=0"`
	TotalLessons     *int `json:"totalLessons" validate:"omitempty,min=0"`
}

// ProgressSummary aggregates a student's progress across enrolled courses.
// OverallProgress is lesson weighted; AverageProgress is the mean of course percentages.
type ProgressSummary struct {
	TotalCourses      int `json:"totalCourses"`
	CompletedCourses  int `json:"completedCourses"`
	InProgressCourses int `json:"inProgressCourses"`
	NotStartedCourses int `json:"notStartedCourses"`
	CompletedLessons  int `json:"completedLessons"`
	TotalLessons      int `json:"totalLessons"`
	OverallProgress   int `json:"overallProgress"`
	AverageProgress   int `json:"averageProgress"`
}
