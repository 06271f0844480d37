package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "MBKM Equivalence API",
        "description": "Editing sessions for MBKM course equivalences: catalog search and selection save.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Equivalence", "description": "Per-registration editing sessions"},
        {"name": "Observability", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/registrations/{id}/equivalence-session": {
            "parameters": [
                {"name": "id", "in": "path", "required": true, "type": "string"}
            ],
            "post": {
                "tags": ["Equivalence"],
                "summary": "Open the equivalence editor for a registration",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Registration not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Equivalence"],
                "summary": "Get the current session state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No open session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Equivalence"],
                "summary": "Close the session and discard unsaved changes",
                "responses": {
                    "204": {"description": "Closed"},
                    "404": {"description": "No open session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/equivalence-session/reload": {
            "post": {
                "tags": ["Equivalence"],
                "summary": "Re-read the registration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Save in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/equivalence-session/filters": {
            "parameters": [
                {"name": "id", "in": "path", "required": true, "type": "string"}
            ],
            "patch": {
                "tags": ["Equivalence"],
                "summary": "Update a catalog filter field or the search term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetFilterRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Equivalence"],
                "summary": "Clear every catalog filter",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/equivalence-session/catalog/more": {
            "post": {
                "tags": ["Equivalence"],
                "summary": "Load the next catalog page",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Nothing requested", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Page requested", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/equivalence-session/selection/toggle": {
            "post": {
                "tags": ["Equivalence"],
                "summary": "Select or deselect a subject as equivalent",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ToggleSubjectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/equivalence-session/save": {
            "post": {
                "tags": ["Equivalence"],
                "summary": "Save the selection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Save already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Nothing to save", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Portal failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Aggregated service metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SetFilterRequest": {
            "type": "object",
            "properties": {
                "field": {"type": "string", "enum": ["code", "semester", "program", "class_track", "department", "course_type"]},
                "value": {"type": "string", "maxLength": 100}
            }
        },
        "ToggleSubjectRequest": {
            "type": "object",
            "required": ["subject_id"],
            "properties": {
                "subject_id": {"type": "string"}
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
