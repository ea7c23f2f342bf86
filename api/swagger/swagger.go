package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Observations API",
        "description": "Student observation records with paginated listing and export",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Observations", "description": "Observation records kept by homeroom teachers"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/observations": {
            "get": {
                "tags": ["Observations"],
                "summary": "List observations",
                "description": "Accepts both page/limit/sort/order and the _page/_limit/_sort/_order forms. Omitting the limit returns the whole matching collection.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "filter", "in": "query", "type": "string", "enum": ["all", "active", "completed", "favorites"]},
                    {"name": "isCompleted", "in": "query", "type": "boolean"},
                    {"name": "isFavorite", "in": "query", "type": "boolean"},
                    {"name": "_page", "in": "query", "type": "integer"},
                    {"name": "_limit", "in": "query", "type": "integer"},
                    {"name": "_sort", "in": "query", "type": "string", "enum": ["createdAt", "studentName", "completedAt"]},
                    {"name": "_order", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {"X-Total-Count": {"type": "integer", "description": "Matching items"}},
                        "schema": {"$ref": "#/definitions/ResponseEnvelope"}
                    },
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Observations"],
                "summary": "Create observation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateObservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/observations/export": {
            "get": {
                "tags": ["Observations"],
                "summary": "Export observations",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "filter", "in": "query", "type": "string", "enum": ["all", "active", "completed", "favorites"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unknown format or filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/observations/{id}": {
            "get": {
                "tags": ["Observations"],
                "summary": "Get observation",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Observations"],
                "summary": "Replace observation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Observation"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Observations"],
                "summary": "Delete observation",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Metrics summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Observation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "studentName": {"type": "string"},
                "observation": {"type": "string"},
                "isFavorite": {"type": "boolean"},
                "isCompleted": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"},
                "completedAt": {"type": "string", "format": "date-time"}
            }
        },
        "CreateObservationRequest": {
            "type": "object",
            "required": ["studentName", "observation"],
            "properties": {
                "studentName": {"type": "string"},
                "observation": {"type": "string", "minLength": 10},
                "isFavorite": {"type": "boolean"},
                "isCompleted": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "currentPage": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "totalItems": {"type": "integer"},
                "itemsPerPage": {"type": "integer"},
                "hasNextPage": {"type": "boolean"},
                "hasPreviousPage": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
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
