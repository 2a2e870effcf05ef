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

// CreateAssignmentRequest describes a new assignment.
type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	CourseID    string    `json:"courseId" validate:"required"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
	MaxPoints   float64   `json:"maxPoints" validate:"gt=0"`
	Published   bool      `json:"published"`
}

// UpdateAssignmentRequest carries editable assignment fields.
type UpdateAssignmentRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	DueDate     *time.Time `json:"dueDate"`
	MaxPoints   *float64   `json:"maxPoints" validate:"omitempty,gt=0"`
	Published   *bool      `json:"published"`
}

// SubmitAssignmentRequest is a student's submission payload.
type SubmitAssignmentRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
}

// GradeSubmissionRequest is a teacher's grading payload.
type GradeSubmissionRequest struct {
	Grade    *float64 `json:"grade" validate:"required,min=0"`
	Feedback string   `json:"feedback" validate:"max=5000"`
}

// AssignmentService manages assignments, submissions and grading.
type AssignmentService struct {
	store     entityStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(st entityStore, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{store: st, validator: validate, logger: logger, now: time.Now}
}

// WithClock overrides the time source used for timestamps.
func (s *AssignmentService) WithClock(now func() time.Time) *AssignmentService {
	s.now = now
	return s
}

// Create adds an assignment to a course the teacher owns.
func (s *AssignmentService) Create(ctx context.Context, actor models.Identity, req CreateAssignmentRequest) (*models.Assignment, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	var created models.Assignment
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if _, err := ownedCourseIndex(tx.Snapshot, actor, req.CourseID); err != nil {
			return err
		}
		created = models.Assignment{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			CourseID:    req.CourseID,
			TeacherID:   actor.ID,
			DueDate:     req.DueDate.UTC(),
			MaxPoints:   req.MaxPoints,
			Submissions: []models.Submission{},
			Published:   req.Published,
			CreatedAt:   s.now().UTC(),
		}
		tx.Assignments = append(tx.Assignments, created)
		tx.Touch(store.KindAssignments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update edits an assignment owned by the teacher.
func (s *AssignmentService) Update(ctx context.Context, actor models.Identity, id string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	var updated models.Assignment
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		ai, err := ownedAssignmentIndex(tx.Snapshot, actor, id)
		if err != nil {
			return err
		}
		a := &tx.Assignments[ai]
		if req.Title != nil {
			a.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			a.Description = *req.Description
		}
		if req.DueDate != nil {
			a.DueDate = req.DueDate.UTC()
		}
		if req.MaxPoints != nil {
			a.MaxPoints = *req.MaxPoints
		}
		if req.Published != nil {
			a.Published = *req.Published
		}
		updated = *a
		tx.Touch(store.KindAssignments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an assignment owned by the teacher.
func (s *AssignmentService) Delete(ctx context.Context, actor models.Identity, id string) error {
	return s.store.Update(ctx, func(tx *store.Tx) error {
		ai, err := ownedAssignmentIndex(tx.Snapshot, actor, id)
		if err != nil {
			return err
		}
		tx.Assignments = append(tx.Assignments[:ai], tx.Assignments[ai+1:]...)
		tx.Touch(store.KindAssignments)
		return nil
	})
}

// Submit records the student's submission; a resubmission replaces the previous one.
func (s *AssignmentService) Submit(ctx context.Context, actor models.Identity, assignmentID string, req SubmitAssignmentRequest) (*models.Submission, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	var submission models.Submission
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		ai := tx.AssignmentIndex(assignmentID)
		if ai < 0 || !tx.Assignments[ai].Published {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		a := &tx.Assignments[ai]
		if !IsEnrolled(actor.ID, a.CourseID, tx.Enrollments) {
			return appErrors.ErrNotEnrolled
		}
		submission = models.Submission{
			ID:          uuid.NewString(),
			StudentID:   actor.ID,
			StudentName: actor.Name,
			Content:     req.Content,
			SubmittedAt: s.now().UTC(),
		}
		replaced := false
		for i := range a.Submissions {
			if a.Submissions[i].StudentID == actor.ID {
				a.Submissions[i] = submission
				replaced = true
				break
			}
		}
		if !replaced {
			a.Submissions = append(a.Submissions, submission)
		}
		tx.Touch(store.KindAssignments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// Grade scores a submission; the grade must lie within [0, MaxPoints].
func (s *AssignmentService) Grade(ctx context.Context, actor models.Identity, assignmentID, submissionID string, req GradeSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	var graded models.Submission
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		ai, err := ownedAssignmentIndex(tx.Snapshot, actor, assignmentID)
		if err != nil {
			return err
		}
		a := &tx.Assignments[ai]
		if *req.Grade > a.MaxPoints {
			return appErrors.Clone(appErrors.ErrValidation, "grade exceeds max points")
		}
		for i := range a.Submissions {
			if a.Submissions[i].ID != submissionID {
				continue
			}
			grade := *req.Grade
			at := s.now().UTC()
			a.Submissions[i].Grade = &grade
			a.Submissions[i].Feedback = req.Feedback
			a.Submissions[i].GradedAt = &at
			graded = a.Submissions[i]
			tx.Touch(store.KindAssignments)
			return nil
		}
		return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	})
	if err != nil {
		return nil, err
	}
	return &graded, nil
}

func ownedAssignmentIndex(snap store.Snapshot, actor models.Identity, id string) (int, error) {
	if !actor.IsTeacher() {
		return -1, appErrors.Clone(appErrors.ErrForbidden, "only teachers can manage assignments")
	}
	ai := snap.AssignmentIndex(id)
	if ai < 0 {
		return -1, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if snap.Assignments[ai].TeacherID != actor.ID {
		return -1, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}
	return ai, nil
}
