package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Audit Trail API",
        "description": "GDPR-aware audit logging service with pluggable sinks, pseudonymization and asynchronous exports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Events", "description": "Recording and querying audit events"},
        {"name": "Exports", "description": "Asynchronous export jobs"},
        {"name": "Archive", "description": "Retention and archival"},
        {"name": "Protection", "description": "Pseudonymization mappings"},
        {"name": "Health", "description": "Sink health probes"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/events": {
            "post": {
                "tags": ["Events"],
                "summary": "Record an audit event",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            },
            "get": {
                "tags": ["Events"],
                "summary": "Query audit events",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "actorId", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "resource", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "riskLevel", "in": "query", "type": "string"},
                    {"name": "retention", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "maxResults", "in": "query", "type": "integer"},
                    {"name": "skip", "in": "query", "type": "integer"},
                    {"name": "sortBy", "in": "query", "type": "string"},
                    {"name": "sortAsc", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/batch": {
            "post": {
                "tags": ["Events"],
                "summary": "Record a batch of audit events",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/count": {
            "get": {
                "tags": ["Events"],
                "summary": "Count audit events",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/statistics": {
            "get": {
                "tags": ["Events"],
                "summary": "Aggregate statistics over a window",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archive": {
            "post": {
                "tags": ["Archive"],
                "summary": "Archive operational events older than a cutoff",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ArchiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mappings/{pseudonym}": {
            "get": {
                "tags": ["Protection"],
                "summary": "Reveal the original value behind a pseudonym",
                "parameters": [
                    {"name": "pseudonym", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Mapping missing, expired or not reversible"}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Submit an asynchronous export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Poll an export job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job"}
                }
            }
        },
        "/exports/{id}/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a completed export artifact",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Artifact stream"},
                    "409": {"description": "Export not completed"}
                }
            }
        },
        "/exports/{id}/cancel": {
            "post": {
                "tags": ["Exports"],
                "summary": "Cancel a pending or running export",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Job already finished"}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Probe sink health",
                "responses": {
                    "200": {"description": "Healthy or degraded"},
                    "503": {"description": "Unhealthy"}
                }
            }
        }
    },
    "definitions": {
        "RecordEventRequest": {
            "type": "object",
            "required": ["actorId", "action", "resource", "status"],
            "properties": {
                "timestamp": {"type": "string", "format": "date-time"},
                "actorId": {"type": "string"},
                "action": {"type": "string"},
                "resource": {"type": "string"},
                "ipAddress": {"type": "string"},
                "sessionId": {"type": "string"},
                "status": {"type": "string", "enum": ["Success", "Failure"]},
                "metadata": {"type": "object"},
                "correlationId": {"type": "string"},
                "sensitive": {"type": "boolean"}
            }
        },
        "RecordBatchRequest": {
            "type": "object",
            "required": ["events"],
            "properties": {
                "events": {"type": "array", "items": {"$ref": "#/definitions/RecordEventRequest"}}
            }
        },
        "ArchiveRequest": {
            "type": "object",
            "properties": {
                "before": {"type": "string", "format": "date-time"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "filter": {"type": "object"},
                "format": {"type": "string", "enum": ["csv", "json", "xlsx", "pdf"]},
                "includeSensitive": {"type": "boolean"}
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
        "Pagination": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
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
