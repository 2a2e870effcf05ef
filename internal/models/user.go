package models

// UserRole is the only dispatch dimension of the query layer.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Identity is the actor supplied by the external identity provider.
type Identity struct {
	ID    string   `json:"id"`
	Role  UserRole `json:"role"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
}

// IsTeacher reports whether the identity acts as a teacher.
func (i Identity) IsTeacher() bool { return i.Role == RoleTeacher }

// IsStudent reports whether the identity acts as a student.
func (i Identity) IsStudent() bool { return i.Role == RoleStudent }

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
