package store

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/lms-api/internal/models"
)

// encodeKind serialises one collection of the snapshot.
func encodeKind(s Snapshot, kind Kind) ([]byte, error) {
	var value interface{}
	switch kind {
	case KindCourses:
		value = s.Courses
	case KindAssignments:
		value = s.Assignments
	case KindEnrollments:
		value = s.Enrollments
	case KindProgress:
		value = s.Progress
	default:
		return nil, fmt.Errorf("unknown collection %q", kind)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return payload, nil
}

// decodeKind parses payload into the matching collection of dst, replacing it.
// dst is left untouched when payload is malformed.
func decodeKind(dst *Snapshot, kind Kind, payload []byte) error {
	switch kind {
	case KindCourses:
		var courses []models.Course
		if err := json.Unmarshal(payload, &courses); err != nil {
			return err
		}
		if courses == nil {
			courses = []models.Course{}
		}
		dst.Courses = courses
	case KindAssignments:
		var assignments []models.Assignment
		if err := json.Unmarshal(payload, &assignments); err != nil {
			return err
		}
		if assignments == nil {
			assignments = []models.Assignment{}
		}
		dst.Assignments = assignments
	case KindEnrollments:
		var enrollments []models.Enrollment
		if err := json.Unmarshal(payload, &enrollments); err != nil {
			return err
		}
		if enrollments == nil {
			enrollments = []models.Enrollment{}
		}
		dst.Enrollments = enrollments
	case KindProgress:
		var progress map[string]models.ProgressRecord
		if err := json.Unmarshal(payload, &progress); err != nil {
			return err
		}
		if progress == nil {
			progress = map[string]models.ProgressRecord{}
		}
		dst.Progress = progress
	default:
		return fmt.Errorf("unknown collection %q", kind)
	}
	return nil
}

func setEmpty(dst *Snapshot, kind Kind) {
	empty := emptySnapshot()
	switch kind {
	case KindCourses:
		dst.Courses = empty.Courses
	case KindAssignments:
		dst.Assignments = empty.Assignments
	case KindEnrollments:
		dst.Enrollments = empty.Enrollments
	case KindProgress:
		dst.Progress = empty.Progress
	}
}

func copyKind(dst *Snapshot, src Snapshot, kind Kind) {
	switch kind {
	case KindCourses:
		dst.Courses = src.Courses
	case KindAssignments:
		dst.Assignments = src.Assignments
	case KindEnrollments:
		dst.Enrollments = src.Enrollments
	case KindProgress:
		dst.Progress = src.Progress
	}
}

func kindValue(s Snapshot, kind Kind) interface{} {
	switch kind {
	case KindCourses:
		return s.Courses
	case KindAssignments:
		return s.Assignments
	case KindEnrollments:
		return s.Enrollments
	case KindProgress:
		return s.Progress
	}
	return nil
}
