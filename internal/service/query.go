package service

import (
	"github.com/noah-isme/lms-api/internal/models"
)

// CoursesForUser projects the course list for the caller: teachers see their
// own courses, students see published courses, any other role sees everything.
func CoursesForUser(courses []models.Course, role models.UserRole, userID string) []models.Course {
	switch role {
	case models.RoleTeacher:
		out := make([]models.Course, 0, len(courses))
		for _, c := range courses {
			if c.TeacherID == userID {
				out = append(out, c)
			}
		}
		return out
	case models.RoleStudent:
		out := make([]models.Course, 0, len(courses))
		for _, c := range courses {
			if c.Published {
				out = append(out, c)
			}
		}
		return out
	default:
		return courses
	}
}

// AssignmentsForUser projects assignments for the caller: teachers see their
// own, students see published assignments of courses they are enrolled in.
func AssignmentsForUser(assignments []models.Assignment, role models.UserRole, userID string, enrollments []models.Enrollment) []models.Assignment {
	switch role {
	case models.RoleTeacher:
		out := make([]models.Assignment, 0, len(assignments))
		for _, a := range assignments {
			if a.TeacherID == userID {
				out = append(out, a)
			}
		}
		return out
	case models.RoleStudent:
		enrolled := make(map[string]struct{})
		for _, e := range enrollments {
			if e.StudentID == userID {
				enrolled[e.CourseID] = struct{}{}
			}
		}
		out := make([]models.Assignment, 0, len(assignments))
		for _, a := range assignments {
			if _, ok := enrolled[a.CourseID]; ok && a.Published {
				out = append(out, a)
			}
		}
		return out
	default:
		return assignments
	}
}

// EnrolledCourses joins the user's enrollments to their courses and attaches
// progress. Enrollments whose course is gone are dropped and counted in the
// second return value.
func EnrolledCourses(userID string, enrollments []models.Enrollment, courses []models.Course, progress map[string]models.ProgressRecord) ([]models.CourseWithProgress, int) {
	byID := make(map[string]int, len(courses))
	for i, c := range courses {
		byID[c.ID] = i
	}

	out := make([]models.CourseWithProgress, 0)
	dangling := 0
	for _, e := range enrollments {
		if e.StudentID != userID {
			continue
		}
		idx, ok := byID[e.CourseID]
		if !ok {
			dangling++
			continue
		}
		out = append(out, models.CourseWithProgress{
			Course:     courses[idx],
			Enrollment: e,
			Progress:   progressFor(e, progress),
		})
	}
	return out, dangling
}

// IsEnrolled is the one membership predicate every enrollment check goes through.
func IsEnrolled(userID, courseID string, enrollments []models.Enrollment) bool {
	return enrollmentIndex(userID, courseID, enrollments) >= 0
}

func enrollmentIndex(userID, courseID string, enrollments []models.Enrollment) int {
	for i := range enrollments {
		if enrollments[i].StudentID == userID && enrollments[i].CourseID == courseID {
			return i
		}
	}
	return -1
}

// progressFor returns the authoritative record, falling back to the enrollment mirror.
func progressFor(e models.Enrollment, progress map[string]models.ProgressRecord) models.ProgressRecord {
	if record, ok := progress[models.ProgressKey(e.StudentID, e.CourseID)]; ok {
		return record
	}
	return models.ProgressRecord{
		StudentID:        e.StudentID,
		CourseID:         e.CourseID,
		CompletedLessons: e.CompletedLessons,
		TotalLessons:     e.TotalLessons,
	}
}

// SummarizeProgress aggregates per-course progress into a ProgressSummary.
func SummarizeProgress(courses []models.CourseWithProgress) models.ProgressSummary {
	summary := models.ProgressSummary{TotalCourses: len(courses)}
	percentSum := 0
	for _, c := range courses {
		pct := c.Progress.Percentage()
		switch {
		case pct >= 100:
			summary.CompletedCourses++
		case pct > 0:
			summary.InProgressCourses++
		default:
			summary.NotStartedCourses++
		}
		percentSum += pct
		summary.CompletedLessons += c.Progress.CompletedLessons
		summary.TotalLessons += c.Progress.TotalLessons
	}
	summary.OverallProgress = models.Percent(summary.CompletedLessons, summary.TotalLessons)
	if summary.TotalCourses > 0 {
		summary.AverageProgress = models.Percent(percentSum, summary.TotalCourses*100)
	}
	return summary
}
