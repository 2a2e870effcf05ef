package service

import (
	"time"

	"github.com/noah-isme/lms-api/internal/models"
)

type achievementRule struct {
	models.Achievement
	satisfied func(summary models.ProgressSummary, streak int) bool
}

// achievementRules is evaluated in order; rules are independent of each other.
var achievementRules = []achievementRule{
	{
		Achievement: models.Achievement{ID: "first_steps", Title: "First Steps", Description: "Complete your first lesson"},
		satisfied:   func(s models.ProgressSummary, _ int) bool { return s.CompletedLessons >= 1 },
	},
	{
		Achievement: models.Achievement{ID: "first_completion", Title: "Course Finisher", Description: "Complete a course"},
		satisfied:   func(s models.ProgressSummary, _ int) bool { return s.CompletedCourses >= 1 },
	},
	{
		Achievement: models.Achievement{ID: "course_collector", Title: "Course Collector", Description: "Complete three courses"},
		satisfied:   func(s models.ProgressSummary, _ int) bool { return s.CompletedCourses >= 3 },
	},
	{
		Achievement: models.Achievement{ID: "halfway_there", Title: "Halfway There", Description: "Reach 50% average progress"},
		satisfied:   func(s models.ProgressSummary, _ int) bool { return s.TotalCourses > 0 && s.AverageProgress >= 50 },
	},
	{
		Achievement: models.Achievement{ID: "week_streak", Title: "On Fire", Description: "Study seven days in a row"},
		satisfied:   func(_ models.ProgressSummary, streak int) bool { return streak >= 7 },
	},
	{
		Achievement: models.Achievement{ID: "explorer", Title: "Explorer", Description: "Enroll in five courses"},
		satisfied:   func(s models.ProgressSummary, _ int) bool { return s.TotalCourses >= 5 },
	},
}

// EvaluateAchievements returns every achievement currently satisfied. Nothing
// is remembered between calls, so lost progress also drops the badge.
func EvaluateAchievements(summary models.ProgressSummary, streak int) []models.Achievement {
	earned := make([]models.Achievement, 0, len(achievementRules))
	for _, rule := range achievementRules {
		if rule.satisfied(summary, streak) {
			earned = append(earned, rule.Achievement)
		}
	}
	return earned
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateIn(t time.Time, loc *time.Location) civilDate {
	y, m, d := t.In(loc).Date()
	return civilDate{year: y, month: m, day: d}
}

// previous steps back one calendar day; noon avoids DST edge hours.
func (d civilDate) previous(loc *time.Location) civilDate {
	return dateIn(time.Date(d.year, d.month, d.day-1, 12, 0, 0, 0, loc), loc)
}

// CalculateStreak counts consecutive local calendar days, ending with the day
// of now, on which at least one record was accessed. Zero when today is idle.
func CalculateStreak(records []models.ProgressRecord, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	active := make(map[civilDate]struct{}, len(records))
	for _, r := range records {
		if r.LastAccessed.IsZero() {
			continue
		}
		active[dateIn(r.LastAccessed, loc)] = struct{}{}
	}

	streak := 0
	for day := dateIn(now, loc); ; day = day.previous(loc) {
		if _, ok := active[day]; !ok {
			return streak
		}
		streak++
	}
}

// studentRecords collects the progress records belonging to one student.
func studentRecords(progress map[string]models.ProgressRecord, studentID string) []models.ProgressRecord {
	out := make([]models.ProgressRecord, 0)
	for _, r := range progress {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}
