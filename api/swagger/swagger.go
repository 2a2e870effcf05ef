package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS API",
        "description": "Courses, assignments, enrollments and learning progress for teachers and students.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Courses", "description": "Course catalogue and teacher course management"},
        {"name": "Enrollments", "description": "Student enrollment in courses"},
        {"name": "Assignments", "description": "Assignments, submissions and grading"},
        {"name": "Progress", "description": "Lesson progress tracking"},
        {"name": "Dashboard", "description": "Role specific landing data"},
        {"name": "Store", "description": "Entity store maintenance"}
    ],
    "paths": {
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses visible to the caller",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course (teacher)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/enrolled": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Courses the student is enrolled in, with progress",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get a course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Update a course (owner)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCourseRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete a course with its assignments, enrollments and progress (owner)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/courses/{id}/enroll": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll the caller in a published course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Unenroll the caller; a no-op when not enrolled",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/courses/{id}/report": {
            "get": {
                "tags": ["Courses"],
                "summary": "Download a course progress report (owner)",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "Report file"}}
            }
        },
        "/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignments visible to the caller",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Create an assignment in an owned course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssignmentRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/assignments/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Get an assignment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Assignments"],
                "summary": "Update an assignment (owner)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Assignments"],
                "summary": "Delete an assignment (owner)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/assignments/{id}/submissions": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Submit or resubmit work (enrolled student)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAssignmentRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/assignments/{id}/submissions/{submissionId}/grade": {
            "put": {
                "tags": ["Assignments"],
                "summary": "Grade a submission (owner)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeSubmissionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/progress/overall": {
            "get": {
                "tags": ["Progress"],
                "summary": "Aggregate progress across enrolled courses",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/progress/{courseId}": {
            "put": {
                "tags": ["Progress"],
                "summary": "Merge a progress patch; values are clamped to the lesson total",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProgressPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress/{courseId}/lessons": {
            "post": {
                "tags": ["Progress"],
                "summary": "Mark one more lesson completed",
                "parameters": [{"name": "courseId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard for the caller's role",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/store/refresh": {
            "post": {
                "tags": ["Store"],
                "summary": "Reload collections from the durable backend",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "CreateCourseRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "totalLessons": {"type": "integer", "minimum": 0},
                "published": {"type": "boolean"}
            },
            "required": ["title"]
        },
        "UpdateCourseRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "totalLessons": {"type": "integer", "minimum": 0},
                "published": {"type": "boolean"}
            }
        },
        "CreateAssignmentRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "courseId": {"type": "string"},
                "dueDate": {"type": "string", "format": "date-time"},
                "maxPoints": {"type": "number"},
                "published": {"type": "boolean"}
            },
            "required": ["title", "courseId", "dueDate", "maxPoints"]
        },
        "SubmitAssignmentRequest": {
            "type": "object",
            "properties": {"content": {"type": "string"}},
            "required": ["content"]
        },
        "GradeSubmissionRequest": {
            "type": "object",
            "properties": {
                "grade": {"type": "number", "minimum": 0},
                "feedback": {"type": "string"}
            },
            "required": ["grade"]
        },
        "ProgressPatch": {
            "type": "object",
            "properties": {
                "completedLessons": {"type": "integer", "minimum": 0},
                "totalLessons": {"type": "integer", "minimum": 0}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
