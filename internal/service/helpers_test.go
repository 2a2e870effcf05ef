package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/store"
)

var (
	teacherT1 = models.Identity{ID: "T1", Role: models.RoleTeacher, Name: "Ada Teacher", Email: "ada@school.test"}
	teacherT2 = models.Identity{ID: "T2", Role: models.RoleTeacher, Name: "Bob Teacher"}
	studentS1 = models.Identity{ID: "S1", Role: models.RoleStudent, Name: "Sam Student", Email: "sam@school.test"}
	studentS2 = models.Identity{ID: "S2", Role: models.RoleStudent, Name: "Sue Student"}
	adminA1   = models.Identity{ID: "A1", Role: models.UserRole("admin"), Name: "Root"}
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	repo        *repository.MemorySlotRepository
	store       *store.Store
	clock       *testClock
	courses     *CourseService
	assignments *AssignmentService
	enrollments *EnrollmentService
	queries     *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemorySlotRepository()
	st := store.New(repo, store.Options{})
	require.NoError(t, st.Load(context.Background()))
	clock := &testClock{now: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)}
	return &fixture{
		repo:        repo,
		store:       st,
		clock:       clock,
		courses:     NewCourseService(st, nil, nil).WithClock(clock.Now),
		assignments: NewAssignmentService(st, nil, nil).WithClock(clock.Now),
		enrollments: NewEnrollmentService(st, nil, nil, nil).WithClock(clock.Now),
		queries:     NewQueryService(st, nil),
	}
}

func (f *fixture) course(t *testing.T, owner models.Identity, title string, lessons int, published bool) models.Course {
	t.Helper()
	c, err := f.courses.Create(context.Background(), owner, CreateCourseRequest{Title: title, TotalLessons: lessons, Published: published})
	require.NoError(t, err)
	return *c
}

func (f *fixture) enroll(t *testing.T, student models.Identity, courseID string) models.Enrollment {
	t.Helper()
	e, err := f.enrollments.Enroll(context.Background(), student, courseID)
	require.NoError(t, err)
	return *e
}

func (f *fixture) setCompleted(t *testing.T, student models.Identity, courseID string, completed int) models.ProgressRecord {
	t.Helper()
	record, err := f.enrollments.UpdateProgress(context.Background(), student, courseID, models.ProgressPatch{CompletedLessons: &completed})
	require.NoError(t, err)
	return *record
}

func intPtr(v int) *int { return &v }
