package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/store"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// CreateCourseRequest describes a new course.
type CreateCourseRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=5000"`
	TotalLessons int    `json:"totalLessons" validate:"min=0"`
	Published    bool   `json:"published"`
}

// UpdateCourseRequest carries the fields a teacher may change.
type UpdateCourseRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	TotalLessons *int    `json:"totalLessons" validate:"omitempty,min=0"`
	Published    *bool   `json:"published"`
}

// CourseService handles teacher-side course lifecycle.
type CourseService struct {
	store     entityStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCourseService constructs CourseService.
func NewCourseService(st entityStore, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{store: st, validator: validate, logger: logger, now: time.Now}
}

// WithClock overrides the time source used for timestamps.
func (s *CourseService) WithClock(now func() time.Time) *CourseService {
	s.now = now
	return s
}

// Create adds a course owned by the acting teacher.
func (s *CourseService) Create(ctx context.Context, actor models.Identity, req CreateCourseRequest) (*models.Course, error) {
	if !actor.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can create courses")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	now := s.now().UTC()
	course := models.Course{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Description:      req.Description,
		TeacherID:        actor.ID,
		TeacherName:      actor.Name,
		TotalLessons:     req.TotalLessons,
		EnrolledStudents: []models.EnrolledStudent{},
		Published:        req.Published,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		tx.Courses = append(tx.Courses, course)
		tx.Touch(store.KindCourses)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("teacher_id", actor.ID))
	return &course, nil
}

// Update edits a course. Changing TotalLessons re-clamps every enrolled
// student's progress through the shared progress writer.
func (s *CourseService) Update(ctx context.Context, actor models.Identity, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	var updated models.Course
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		ci, err := ownedCourseIndex(tx.Snapshot, actor, id)
		if err != nil {
			return err
		}
		course := &tx.Courses[ci]
		if req.Title != nil {
			course.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			course.Description = *req.Description
		}
		if req.Published != nil {
			course.Published = *req.Published
		}
		tx.Touch(store.KindCourses)

		if req.TotalLessons != nil && *req.TotalLessons != course.TotalLessons {
			course.TotalLessons = *req.TotalLessons
			for _, e := range tx.Enrollments {
				if e.CourseID != id {
					continue
				}
				record := progressFor(e, tx.Progress)
				record.TotalLessons = course.TotalLessons
				applyProgress(&tx.Snapshot, record)
			}
			tx.Touch(store.KindEnrollments, store.KindProgress)
		}
		course.UpdatedAt = s.now().UTC()
		updated = *course
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a course together with its assignments, enrollments and progress records.
func (s *CourseService) Delete(ctx context.Context, actor models.Identity, id string) error {
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		ci, err := ownedCourseIndex(tx.Snapshot, actor, id)
		if err != nil {
			return err
		}
		tx.Courses = append(tx.Courses[:ci], tx.Courses[ci+1:]...)

		assignments := tx.Assignments[:0]
		for _, a := range tx.Assignments {
			if a.CourseID != id {
				assignments = append(assignments, a)
			}
		}
		tx.Assignments = assignments

		enrollments := tx.Enrollments[:0]
		for _, e := range tx.Enrollments {
			if e.CourseID != id {
				enrollments = append(enrollments, e)
			}
		}
		tx.Enrollments = enrollments

		for key, record := range tx.Progress {
			if record.CourseID == id {
				delete(tx.Progress, key)
			}
		}
		tx.Touch(store.Kinds...)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("course deleted", zap.String("course_id", id), zap.String("teacher_id", actor.ID))
	return nil
}

func ownedCourseIndex(snap store.Snapshot, actor models.Identity, id string) (int, error) {
	if !actor.IsTeacher() {
		return -1, appErrors.Clone(appErrors.ErrForbidden, "only teachers can manage courses")
	}
	ci := snap.CourseIndex(id)
	if ci < 0 {
		return -1, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if snap.Courses[ci].TeacherID != actor.ID {
		return -1, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another teacher")
	}
	return ci, nil
}
