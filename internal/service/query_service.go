package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/store"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type snapshotReader interface {
	Snapshot() store.Snapshot
	Version() uint64
}

// QueryService serves role-scoped reads over store snapshots.
type QueryService struct {
	store  snapshotReader
	logger *zap.Logger
}

// NewQueryService constructs QueryService.
func NewQueryService(st snapshotReader, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{store: st, logger: logger}
}

// Courses lists the courses visible to the actor.
func (s *QueryService) Courses(ctx context.Context, actor models.Identity) []models.Course {
	snap := s.store.Snapshot()
	return CoursesForUser(snap.Courses, actor.Role, actor.ID)
}

// Course returns one course when the actor may see it.
func (s *QueryService) Course(ctx context.Context, actor models.Identity, id string) (*models.Course, error) {
	snap := s.store.Snapshot()
	course, ok := snap.Course(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	visible := CoursesForUser([]models.Course{course}, actor.Role, actor.ID)
	if len(visible) == 0 && !IsEnrolled(actor.ID, id, snap.Enrollments) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &course, nil
}

// Assignments lists the assignments visible to the actor. Students only see
// their own submissions.
func (s *QueryService) Assignments(ctx context.Context, actor models.Identity) []models.Assignment {
	snap := s.store.Snapshot()
	visible := AssignmentsForUser(snap.Assignments, actor.Role, actor.ID, snap.Enrollments)
	if actor.IsStudent() {
		for i := range visible {
			visible[i].Submissions = ownSubmissions(visible[i].Submissions, actor.ID)
		}
	}
	return visible
}

// Assignment returns one assignment when the actor may see it.
func (s *QueryService) Assignment(ctx context.Context, actor models.Identity, id string) (*models.Assignment, error) {
	snap := s.store.Snapshot()
	assignment, ok := snap.Assignment(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if len(AssignmentsForUser([]models.Assignment{assignment}, actor.Role, actor.ID, snap.Enrollments)) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if actor.IsStudent() {
		assignment.Submissions = ownSubmissions(assignment.Submissions, actor.ID)
	}
	return &assignment, nil
}

// EnrolledCourses lists the actor's courses with enrollment and progress attached.
func (s *QueryService) EnrolledCourses(ctx context.Context, actor models.Identity) []models.CourseWithProgress {
	snap := s.store.Snapshot()
	return s.enrolledCourses(actor.ID, snap)
}

// IsEnrolled reports whether the student holds an enrollment for the course.
func (s *QueryService) IsEnrolled(ctx context.Context, studentID, courseID string) bool {
	return IsEnrolled(studentID, courseID, s.store.Snapshot().Enrollments)
}

func ownSubmissions(subs []models.Submission, studentID string) []models.Submission {
	out := make([]models.Submission, 0, 1)
	for _, sub := range subs {
		if sub.StudentID == studentID {
			out = append(out, sub)
		}
	}
	return out
}

func (s *QueryService) enrolledCourses(studentID string, snap store.Snapshot) []models.CourseWithProgress {
	courses, dangling := EnrolledCourses(studentID, snap.Enrollments, snap.Courses, snap.Progress)
	if dangling > 0 {
		s.logger.Warn("enrollments reference missing courses",
			zap.String("code", appErrors.ErrDanglingReference.Code),
			zap.String("student_id", studentID),
			zap.Int("count", dangling))
	}
	return courses
}
