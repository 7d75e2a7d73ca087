package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EduMesh API",
        "description": "Multi-tenant school backend gateway",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Enrollments", "description": "Batch enrollment and lifecycle"},
        {"name": "Bibliography", "description": "Chapter bibliography and sequencing"},
        {"name": "Chat", "description": "Bibliography-anchored chat sessions"}
    ],
    "paths": {
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "moduleId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "batchId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/batch": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll one student into many modules",
                "parameters": [
                    {"name": "X-School-ID", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchEnrollRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-item results", "schema": {"$ref": "#/definitions/BatchResponse"}}
                }
            }
        },
        "/enrollments/batch-students": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll many students into one module",
                "parameters": [
                    {"name": "X-School-ID", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchEnrollStudentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-item results", "schema": {"$ref": "#/definitions/BatchResponse"}}
                }
            }
        },
        "/enrollments/{id}/withdraw": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Withdraw an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not active", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/enrollments/{id}/complete": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Complete an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not active", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/chapters/{chapterId}/bibliography": {
            "get": {
                "tags": ["Bibliography"],
                "summary": "List a chapter's bibliography",
                "parameters": [
                    {"name": "chapterId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Bibliography"],
                "summary": "Add a bibliography item",
                "parameters": [
                    {"name": "chapterId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBibliographyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/chapters/{chapterId}/bibliography/reorder": {
            "put": {
                "tags": ["Bibliography"],
                "summary": "Atomically reorder chapter items",
                "parameters": [
                    {"name": "chapterId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReorderRequest"}}
                ],
                "responses": {
                    "200": {"description": "Reordered listing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Duplicate or cross-chapter moves", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/chapters/{chapterId}/bibliography/export": {
            "get": {
                "tags": ["Bibliography"],
                "summary": "Export a chapter's bibliography",
                "parameters": [
                    {"name": "chapterId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File payload"}
                }
            }
        },
        "/bibliography/{id}": {
            "delete": {
                "tags": ["Bibliography"],
                "summary": "Soft-delete a bibliography item",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/chat/sessions": {
            "post": {
                "tags": ["Chat"],
                "summary": "Start a chat session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Session with opening message", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Advisory unavailable", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/chat/sessions/{id}": {
            "get": {
                "tags": ["Chat"],
                "summary": "Fetch a session with messages",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/chat/sessions/{id}/messages": {
            "post": {
                "tags": ["Chat"],
                "summary": "Send a message and receive the reply",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "Assistant reply", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session not active", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/chat/sessions/{id}/complete": {
            "put": {
                "tags": ["Chat"],
                "summary": "Complete a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/chat/sessions/{id}/cancel": {
            "put": {
                "tags": ["Chat"],
                "summary": "Cancel a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "BatchEnrollRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "student_id": {"type": "string"},
                "module_ids": {"type": "array", "items": {"type": "string"}},
                "notify": {"type": "boolean"}
            },
            "required": ["student_id", "module_ids"]
        },
        "BatchEnrollStudentsRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "module_id": {"type": "string"},
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "type": {"type": "string", "enum": ["INDIVIDUAL", "ACADEMIC_YEAR"]},
                "notify": {"type": "boolean"}
            },
            "required": ["module_id"]
        },
        "BatchResponse": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "total_requested": {"type": "integer"},
                "successful": {"type": "integer"},
                "failed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/BatchItemResult"}}
            }
        },
        "BatchItemResult": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "module_id": {"type": "string"},
                "enrollment_id": {"type": "string"},
                "success": {"type": "boolean"},
                "was_duplicate": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "CreateBibliographyRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "title": {"type": "string"},
                "source_url": {"type": "string"},
                "kind": {"type": "string", "enum": ["ARTICLE", "BOOK", "VIDEO"]},
                "declares_question": {"type": "boolean"},
                "question_text": {"type": "string"}
            },
            "required": ["title", "kind"]
        },
        "ReorderRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "moves": {"type": "array", "items": {"$ref": "#/definitions/SequenceMove"}}
            },
            "required": ["moves"]
        },
        "SequenceMove": {
            "type": "object",
            "properties": {
                "item_id": {"type": "string"},
                "new_sequence": {"type": "integer", "minimum": 1}
            },
            "required": ["item_id", "new_sequence"]
        },
        "StartSessionRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "student_id": {"type": "string"},
                "module_id": {"type": "string"},
                "chapter_id": {"type": "string"},
                "bibliography_id": {"type": "string"},
                "type": {"type": "string", "enum": ["OPEN", "QUIZ"]}
            },
            "required": ["module_id", "chapter_id", "bibliography_id"]
        },
        "SendMessageRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "body": {"type": "string"}
            },
            "required": ["body"]
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
