// Package docs registers the OpenAPI description of the status API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "description": "Get the worker identity and the active counting configuration",
                "produces": ["application/json"],
                "tags": ["worker"],
                "summary": "Get worker information",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.WorkerInfoResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Check if the worker is healthy and responsive",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/counts/latest": {
            "get": {
                "description": "Get the per-lane counts of the most recently processed frame",
                "produces": ["application/json"],
                "tags": ["counts"],
                "summary": "Latest lane counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LaneCountsPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/counts/snapshot": {
            "get": {
                "description": "Get the last frame with lane regions, boxes and centroids drawn on it",
                "produces": ["image/jpeg"],
                "tags": ["counts"],
                "summary": "Latest overlay snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/system/stats": {
            "get": {
                "description": "Get process statistics and pipeline totals",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Get system stats",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "no frame processed yet"}}
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "worker_id": {"type": "string", "example": "traffic-1"},
                "run_id": {"type": "string"},
                "frames_processed": {"type": "integer"},
                "serial_connected": {"type": "boolean"}
            }
        },
        "handlers.WorkerInfoResponse": {
            "type": "object",
            "properties": {
                "worker_id": {"type": "string", "example": "traffic-1"},
                "version": {"type": "string", "example": "1.0.0"},
                "environment": {"type": "string"},
                "port": {"type": "integer"},
                "start_time": {"type": "string"},
                "capabilities": {"type": "array", "items": {"type": "string"}},
                "config": {"type": "object"}
            }
        },
        "models.LaneCountsPayload": {
            "type": "object",
            "properties": {
                "worker_id": {"type": "string"},
                "run_id": {"type": "string"},
                "strategy": {"type": "string", "example": "quadrant"},
                "frame": {"type": "object"},
                "counts": {
                    "type": "object",
                    "properties": {
                        "North": {"type": "integer"},
                        "South": {"type": "integer"},
                        "East": {"type": "integer"},
                        "West": {"type": "integer"}
                    }
                },
                "total": {"type": "integer"},
                "unassigned": {"type": "integer"},
                "sent": {"type": "boolean"},
                "send_error": {"type": "string"},
                "serial_disabled": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Traffic Worker API",
	Description:      "Lane counting worker: vehicle detection, lane assignment and serial telemetry",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
