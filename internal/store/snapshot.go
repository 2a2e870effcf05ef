package store

import (
	"github.com/noah-isme/lms-api/internal/models"
)

// Kind names one of the four persisted collections.
type Kind string

const (
	KindCourses     Kind = "courses"
	KindAssignments Kind = "assignments"
	KindEnrollments Kind = "enrollments"
	KindProgress    Kind = "progress"
)

// Kinds lists every collection in load order.
var Kinds = []Kind{KindCourses, KindAssignments, KindEnrollments, KindProgress}

// Snapshot is the in-memory state of the store. Collections are never nil once loaded.
type Snapshot struct {
	Courses     []models.Course
	Assignments []models.Assignment
	Enrollments []models.Enrollment
	Progress    map[string]models.ProgressRecord
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Courses:     []models.Course{},
		Assignments: []models.Assignment{},
		Enrollments: []models.Enrollment{},
		Progress:    map[string]models.ProgressRecord{},
	}
}

// CourseIndex returns the position of the course or -1.
func (s Snapshot) CourseIndex(id string) int {
	for i := range s.Courses {
		if s.Courses[i].ID == id {
			return i
		}
	}
	return -1
}

// AssignmentIndex returns the position of the assignment or -1.
func (s Snapshot) AssignmentIndex(id string) int {
	for i := range s.Assignments {
		if s.Assignments[i].ID == id {
			return i
		}
	}
	return -1
}

// Course returns a copy of the course with the given id.
func (s Snapshot) Course(id string) (models.Course, bool) {
	if i := s.CourseIndex(id); i >= 0 {
		return cloneCourse(s.Courses[i]), true
	}
	return models.Course{}, false
}

// Assignment returns a copy of the assignment with the given id.
func (s Snapshot) Assignment(id string) (models.Assignment, bool) {
	if i := s.AssignmentIndex(id); i >= 0 {
		return cloneAssignment(s.Assignments[i]), true
	}
	return models.Assignment{}, false
}

// Clone deep-copies every collection so readers never alias store memory.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Courses:     make([]models.Course, len(s.Courses)),
		Assignments: make([]models.Assignment, len(s.Assignments)),
		Enrollments: make([]models.Enrollment, len(s.Enrollments)),
		Progress:    make(map[string]models.ProgressRecord, len(s.Progress)),
	}
	for i, c := range s.Courses {
		out.Courses[i] = cloneCourse(c)
	}
	for i, a := range s.Assignments {
		out.Assignments[i] = cloneAssignment(a)
	}
	copy(out.Enrollments, s.Enrollments)
	for k, v := range s.Progress {
		out.Progress[k] = v
	}
	return out
}

func cloneCourse(c models.Course) models.Course {
	if c.EnrolledStudents != nil {
		students := make([]models.EnrolledStudent, len(c.EnrolledStudents))
		copy(students, c.EnrolledStudents)
		c.EnrolledStudents = students
	}
	return c
}

func cloneAssignment(a models.Assignment) models.Assignment {
	if a.Submissions != nil {
		subs := make([]models.Submission, len(a.Submissions))
		for i, sub := range a.Submissions {
			if sub.Grade != nil {
				grade := *sub.Grade
				sub.Grade = &grade
			}
			if sub.GradedAt != nil {
				at := *sub.GradedAt
				sub.GradedAt = &at
			}
			subs[i] = sub
		}
		a.Submissions = subs
	}
	return a
}
