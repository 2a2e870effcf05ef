package models

import "time"

// EnrolledStudent is the denormalized roster entry cached on a Course.
type EnrolledStudent struct {
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	EnrolledAt  time.Time `json:"enrolledAt"`
}

// Course is a teacher-owned unit of lessons students can enroll in.
// len(EnrolledStudents) mirrors the number of enrollments referencing the course.
type Course struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	TeacherID        string            `json:"teacherId"`
	TeacherName      string            `json:"teacherName"`
	TotalLessons     int               `json:"totalLessons"`
	EnrolledStudents []EnrolledStudent `json:"enrolledStudents"`
	Published        bool              `json:"published"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// HasStudent reports whether the roster cache lists the student.
func (c Course) HasStudent(studentID string) bool {
	for _, s := range c.EnrolledStudents {
		if s.StudentID == studentID {
			return true
		}
	}
	return false
}

// CourseWithProgress is a course joined with the caller's enrollment and progress.
type CourseWithProgress struct {
	Course
	Enrollment Enrollment     `json:"enrollment"`
	Progress   ProgressRecord `json:"progress"`
}
