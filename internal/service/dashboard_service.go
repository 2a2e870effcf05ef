package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	Location *time.Location
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Store  snapshotReader
	Cache  *CacheService
	Logger *zap.Logger
	Now    func() time.Time
	Config DashboardServiceConfig
}

// DashboardService composes the student and teacher landing pages.
type DashboardService struct {
	store  snapshotReader
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &DashboardService{store: params.Store, cache: params.Cache, logger: logger, now: now, cfg: cfg}
}

// Student returns the student's dashboard and whether it was served from cache.
func (s *DashboardService) Student(ctx context.Context, actor models.Identity) (*dto.StudentDashboardResponse, bool, error) {
	if !actor.IsStudent() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "student dashboard requires student role")
	}
	now := s.now()
	version := s.store.Version()
	snap := s.store.Snapshot()
	courses, dangling := EnrolledCourses(actor.ID, snap.Enrollments, snap.Courses, snap.Progress)
	if dangling > 0 {
		s.logger.Warn("dashboard skipped enrollments of missing courses",
			zap.String("code", appErrors.ErrDanglingReference.Code),
			zap.String("student_id", actor.ID),
			zap.Int("count", dangling))
	}
	records := studentRecords(snap.Progress, actor.ID)

	cacheKey := ""
	if s.cache.Enabled() {
		fingerprint, err := dashboardFingerprint(courses, records)
		if err != nil {
			s.logger.Warn("dashboard fingerprint failed", zap.String("student_id", actor.ID), zap.Error(err))
		} else {
			cacheKey = StudentDashboardKey(actor.ID, now.In(s.cfg.Location).Format("2006-01-02"), fingerprint)
			var cached dto.StudentDashboardResponse
			hit, err := s.cache.Get(ctx, cacheKey, &cached)
			if err == nil && hit {
				return &cached, true, nil
			}
		}
	}

	summary := SummarizeProgress(courses)
	streak := CalculateStreak(records, now, s.cfg.Location)

	resp := &dto.StudentDashboardResponse{
		StudentID:    actor.ID,
		Courses:      courses,
		Summary:      summary,
		Streak:       streak,
		Achievements: EvaluateAchievements(summary, streak),
		StoreVersion: version,
	}
	if cacheKey != "" {
		_ = s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL)
	}
	return resp, false, nil
}

// Teacher summarises enrollment and progress for each course the teacher owns.
func (s *DashboardService) Teacher(ctx context.Context, actor models.Identity) (*dto.TeacherDashboardResponse, error) {
	if !actor.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher dashboard requires teacher role")
	}
	snap := s.store.Snapshot()
	owned := CoursesForUser(snap.Courses, models.RoleTeacher, actor.ID)

	resp := &dto.TeacherDashboardResponse{TeacherID: actor.ID, Courses: make([]dto.TeacherCourseStats, 0, len(owned))}
	for _, c := range owned {
		// Counts come from enrollment records, which stay authoritative if the roster drifts.
		stats := dto.TeacherCourseStats{CourseID: c.ID, Title: c.Title, Published: c.Published}
		percentSum := 0
		for _, e := range snap.Enrollments {
			if e.CourseID != c.ID {
				continue
			}
			stats.EnrolledCount++
			pct := progressFor(e, snap.Progress).Percentage()
			percentSum += pct
			if pct >= 100 {
				stats.CompletedCount++
			}
		}
		if stats.EnrolledCount > 0 {
			stats.AverageProgress = models.Percent(percentSum, stats.EnrolledCount*100)
		}
		for _, a := range snap.Assignments {
			if a.CourseID != c.ID {
				continue
			}
			stats.AssignmentCount++
			for _, sub := range a.Submissions {
				if sub.Grade == nil {
					stats.UngradedSubmissions++
				}
			}
		}
		resp.Courses = append(resp.Courses, stats)
	}
	return resp, nil
}

// dashboardFingerprint hashes the inputs a student dashboard is built from.
// Records are ordered by course so map iteration order does not leak in.
func dashboardFingerprint(courses []models.CourseWithProgress, records []models.ProgressRecord) (uint64, error) {
	ordered := append([]models.ProgressRecord(nil), records...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].CourseID < ordered[j].CourseID })
	payload, err := json.Marshal(struct {
		Courses []models.CourseWithProgress `json:"courses"`
		Records []models.ProgressRecord     `json:"records"`
	}{courses, ordered})
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(payload), nil
}
