// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g internal/handlers/handler.go -o internal/docs
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
        "/api/v1/data": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Ingest a telemetry record",
                "description": "Writes the record to the canonical file and a timestamped backup.",
                "parameters": [
                    {
                        "description": "Telemetry record",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.TelemetryRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/geotrace.SuccessResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/geotrace.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/geotrace.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/geotrace.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/geotrace.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/geotrace.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "geotrace.ErrorResponse": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "error": {"type": "string", "example": "missing required fields"},
                "invalid": {"type": "array", "items": {"type": "string"}},
                "missing": {"type": "array", "items": {"type": "string"}}
            }
        },
        "geotrace.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "geotrace.SuccessResponse": {
            "type": "object",
            "properties": {
                "received": {"type": "object", "additionalProperties": true},
                "status": {"type": "string", "example": "success"}
            }
        },
        "handlers.TelemetryRequest": {
            "type": "object",
            "required": ["latitude", "longitude", "timestamp"],
            "properties": {
                "device_id": {"type": "string", "example": "truck-17"},
                "latitude": {"type": "number", "example": 40.7128},
                "longitude": {"type": "number", "example": -74.006},
                "timestamp": {"type": "string", "example": "2023-01-01T12:00:00Z"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GeoTrace API",
	Description:      "Receives geolocation telemetry and keeps the latest record plus timestamped backups.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
