package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

var reportHeaders = []string{"Student", "Email", "Enrolled At", "Completed", "Total", "Progress (%)", "Last Accessed", "Submissions", "Avg Grade"}

var reportNumeric = map[string]bool{"Completed": true, "Total": true, "Progress (%)": true, "Submissions": true, "Avg Grade": true}

// ReportService renders per-course progress reports for the owning teacher.
type ReportService struct {
	store  snapshotReader
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService constructs ReportService.
func NewReportService(st snapshotReader, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{store: st, csv: export.NewCSVExporter(), pdf: export.NewPDFExporter(), logger: logger, now: time.Now}
}

// WithClock overrides the time source used for filenames and headers.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// CourseProgress renders the roster of a course with each student's progress and grades.
func (s *ReportService) CourseProgress(ctx context.Context, actor models.Identity, courseID string, format dto.ReportFormat) (*dto.ReportFile, error) {
	if format == "" {
		format = dto.ReportFormatCSV
	}
	if format != dto.ReportFormatCSV && format != dto.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	snap := s.store.Snapshot()
	ci, err := ownedCourseIndex(snap, actor, courseID)
	if err != nil {
		return nil, err
	}
	course := snap.Courses[ci]
	dataset := buildCourseDataset(course, snap.Enrollments, snap.Progress, snap.Assignments)
	generated := s.now().UTC()
	dataset.Meta = []string{
		fmt.Sprintf("Teacher: %s", course.TeacherName),
		fmt.Sprintf("Lessons: %d", course.TotalLessons),
		fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)),
	}

	var (
		content     []byte
		contentType string
	)
	switch format {
	case dto.ReportFormatPDF:
		content, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		content, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Info("course report rendered",
		zap.String("course_id", course.ID),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)))

	return &dto.ReportFile{
		Filename:    fmt.Sprintf("progress_%s_%s.%s", sanitizeFilename(course.Title), generated.Format("20060102_150405"), format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func buildCourseDataset(course models.Course, enrollments []models.Enrollment, progress map[string]models.ProgressRecord, assignments []models.Assignment) export.Dataset {
	type gradeStats struct {
		submissions int
		graded      int
		sum         float64
	}
	grades := make(map[string]*gradeStats)
	for _, a := range assignments {
		if a.CourseID != course.ID {
			continue
		}
		for _, sub := range a.Submissions {
			st, ok := grades[sub.StudentID]
			if !ok {
				st = &gradeStats{}
				grades[sub.StudentID] = st
			}
			st.submissions++
			if sub.Grade != nil {
				st.graded++
				st.sum += *sub.Grade
			}
		}
	}

	rows := make([]models.Enrollment, 0)
	for _, e := range enrollments {
		if e.CourseID == course.ID {
			rows = append(rows, e)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StudentName < rows[j].StudentName })

	dataset := export.Dataset{Title: course.Title, Headers: reportHeaders, Numeric: reportNumeric}
	for _, e := range rows {
		record := progressFor(e, progress)
		lastAccessed := "-"
		if !record.LastAccessed.IsZero() {
			lastAccessed = record.LastAccessed.UTC().Format("2006-01-02 15:04")
		}
		submissions, avg := 0, "-"
		if st := grades[e.StudentID]; st != nil {
			submissions = st.submissions
			if st.graded > 0 {
				avg = fmt.Sprintf("%.2f", st.sum/float64(st.graded))
			}
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":       e.StudentName,
			"Email":         e.StudentEmail,
			"Enrolled At":   e.EnrolledAt.UTC().Format("2006-01-02"),
			"Completed":     fmt.Sprintf("%d", record.CompletedLessons),
			"Total":         fmt.Sprintf("%d", record.TotalLessons),
			"Progress (%)":  fmt.Sprintf("%d", record.Percentage()),
			"Last Accessed": lastAccessed,
			"Submissions":   fmt.Sprintf("%d", submissions),
			"Avg Grade":     avg,
		})
	}
	return dataset
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "course"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 60 {
		return result[:60]
	}
	return result
}
