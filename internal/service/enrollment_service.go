package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/store"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// entityStore is the slice of *store.Store the engine needs.
type entityStore interface {
	Snapshot() store.Snapshot
	Version() uint64
	Update(ctx context.Context, fn func(tx *store.Tx) error) error
}

// EnrollmentService owns enrollment and progress mutations.
type EnrollmentService struct {
	store     entityStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(st entityStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{store: st, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// WithClock overrides the time source used for timestamps.
func (s *EnrollmentService) WithClock(now func() time.Time) *EnrollmentService {
	s.now = now
	return s
}

// Enroll registers the student in a course. The enrollment, the course roster
// entry and a zeroed progress record are committed together.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Identity, courseID string) (*models.Enrollment, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can enroll")
	}

	var created models.Enrollment
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		ci := tx.CourseIndex(courseID)
		if ci < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		course := &tx.Courses[ci]
		if !course.Published {
			return appErrors.Clone(appErrors.ErrForbidden, "course is not open for enrollment")
		}
		if IsEnrolled(actor.ID, courseID, tx.Enrollments) {
			return appErrors.ErrAlreadyEnrolled
		}

		now := s.now().UTC()
		created = models.Enrollment{
			ID:           uuid.NewString(),
			StudentID:    actor.ID,
			StudentName:  actor.Name,
			StudentEmail: actor.Email,
			CourseID:     courseID,
			EnrolledAt:   now,
			TotalLessons: course.TotalLessons,
		}
		tx.Enrollments = append(tx.Enrollments, created)
		if !course.HasStudent(actor.ID) {
			course.EnrolledStudents = append(course.EnrolledStudents, models.EnrolledStudent{
				StudentID:   actor.ID,
				StudentName: actor.Name,
				EnrolledAt:  now,
			})
		}
		applyProgress(&tx.Snapshot, models.ProgressRecord{
			StudentID:    actor.ID,
			CourseID:     courseID,
			TotalLessons: course.TotalLessons,
		})
		tx.Touch(store.KindCourses, store.KindEnrollments, store.KindProgress)
		return nil
	})
	s.metrics.ObserveEnrollmentOp("enroll", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student enrolled", zap.String("student_id", actor.ID), zap.String("course_id", courseID))
	return &created, nil
}

// Unenroll removes the enrollment, the roster entry and the progress record.
// It is a no-op when the student is not enrolled.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, courseID string) error {
	if !IsEnrolled(studentID, courseID, s.store.Snapshot().Enrollments) {
		return nil
	}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if !IsEnrolled(studentID, courseID, tx.Enrollments) {
			return nil
		}
		kept := tx.Enrollments[:0]
		for _, e := range tx.Enrollments {
			if e.StudentID == studentID && e.CourseID == courseID {
				continue
			}
			kept = append(kept, e)
		}
		tx.Enrollments = kept
		if ci := tx.CourseIndex(courseID); ci >= 0 {
			tx.Courses[ci].EnrolledStudents = withoutStudent(tx.Courses[ci].EnrolledStudents, studentID)
		}
		delete(tx.Progress, models.ProgressKey(studentID, courseID))
		tx.Touch(store.KindCourses, store.KindEnrollments, store.KindProgress)
		return nil
	})
	s.metrics.ObserveEnrollmentOp("unenroll", err)
	if err != nil {
		return err
	}
	s.logger.Info("student unenrolled", zap.String("student_id", studentID), zap.String("course_id", courseID))
	return nil
}

// UpdateProgress merges patch into the student's progress record for the course.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor models.Identity, courseID string, patch models.ProgressPatch) (*models.ProgressRecord, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	return s.mutateProgress(ctx, actor, courseID, "update_progress", func(record *models.ProgressRecord) {
		if patch.TotalLessons != nil {
			record.TotalLessons = *patch.TotalLessons
		}
		if patch.CompletedLessons != nil {
			record.CompletedLessons = *patch.CompletedLessons
		}
	})
}

// CompleteLesson marks one more lesson of the course as completed.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, actor models.Identity, courseID string) (*models.ProgressRecord, error) {
	return s.mutateProgress(ctx, actor, courseID, "complete_lesson", func(record *models.ProgressRecord) {
		record.CompletedLessons++
	})
}

func (s *EnrollmentService) mutateProgress(ctx context.Context, actor models.Identity, courseID, op string, merge func(*models.ProgressRecord)) (*models.ProgressRecord, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students track progress")
	}

	var result models.ProgressRecord
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if !IsEnrolled(actor.ID, courseID, tx.Enrollments) {
			return appErrors.ErrNotEnrolled
		}
		enrollment := tx.Enrollments[enrollmentIndex(actor.ID, courseID, tx.Enrollments)]
		record := progressFor(enrollment, tx.Progress)
		merge(&record)
		record.LastAccessed = s.now().UTC()
		result = applyProgress(&tx.Snapshot, record)
		tx.Touch(store.KindEnrollments, store.KindProgress)
		return nil
	})
	s.metrics.ObserveEnrollmentOp(op, err)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// OverallProgress aggregates progress across the student's enrolled courses.
func (s *EnrollmentService) OverallProgress(ctx context.Context, studentID string) models.ProgressSummary {
	snap := s.store.Snapshot()
	courses, _ := EnrolledCourses(studentID, snap.Enrollments, snap.Courses, snap.Progress)
	return SummarizeProgress(courses)
}

// applyProgress is the only writer of progress state: it clamps the record,
// stores it and mirrors its counters onto the matching enrollment.
func applyProgress(snap *store.Snapshot, record models.ProgressRecord) models.ProgressRecord {
	if record.TotalLessons < 0 {
		record.TotalLessons = 0
	}
	if record.CompletedLessons < 0 {
		record.CompletedLessons = 0
	}
	if record.CompletedLessons > record.TotalLessons {
		record.CompletedLessons = record.TotalLessons
	}
	snap.Progress[record.Key()] = record

	if i := enrollmentIndex(record.StudentID, record.CourseID, snap.Enrollments); i >= 0 {
		e := &snap.Enrollments[i]
		e.CompletedLessons = record.CompletedLessons
		e.TotalLessons = record.TotalLessons
		e.Progress = record.Percentage()
	}
	return record
}

func withoutStudent(students []models.EnrolledStudent, studentID string) []models.EnrolledStudent {
	out := make([]models.EnrolledStudent, 0, len(students))
	for _, s := range students {
		if s.StudentID != studentID {
			out = append(out, s)
		}
	}
	return out
}
