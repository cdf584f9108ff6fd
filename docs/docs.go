// Package docs registers the OpenAPI description served under /swagger.
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
        "/api/v1/rates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rates"],
                "summary": "Official NBU rates",
                "parameters": [
                    {"type": "string", "default": "today", "description": "DD.MM.YYYY, today, tomorrow or yesterday", "name": "date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RatesResponse"}},
                    "400": {"description": "Bad Request"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/v1/calculations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["calculations"],
                "summary": "Calculate customs payments",
                "parameters": [
                    {"description": "Vehicle and costs", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CalculationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CalculationResponse"}},
                    "400": {"description": "Bad Request"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/v1/users/{user_id}/calculations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["calculations"],
                "summary": "Recent calculations of a user",
                "parameters": [
                    {"type": "integer", "description": "Chat user id", "name": "user_id", "in": "path", "required": true},
                    {"type": "integer", "default": 5, "description": "Number of records", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CalculationRecordResponse"}}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/api/v1/dialogue/{user_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dialogue"],
                "summary": "Pending dialogue prompt",
                "parameters": [
                    {"type": "integer", "description": "Chat user id", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DialogueResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["dialogue"],
                "summary": "Answer the pending dialogue prompt",
                "parameters": [
                    {"type": "integer", "description": "Chat user id", "name": "user_id", "in": "path", "required": true},
                    {"description": "Answer", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.DialogueRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DialogueResponse"}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/api/v1/admin/stats": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Usage statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.StatsResponse"}},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/api/v1/admin/export": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["text/csv"],
                "tags": ["admin"],
                "summary": "Export all calculations as CSV",
                "responses": {
                    "200": {"description": "CSV file", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        }
    },
    "definitions": {
        "dto.RatesResponse": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "usd": {"type": "number"},
                "eur": {"type": "number"}
            }
        },
        "dto.CalculationRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "integer"},
                "username": {"type": "string"},
                "vehicle_type": {"type": "string"},
                "cost": {"type": "number"},
                "currency": {"type": "string"},
                "additional": {"type": "number"},
                "additional_currency": {"type": "string"},
                "engine_volume": {"type": "number"},
                "battery_kwh": {"type": "number"},
                "year": {"type": "integer"},
                "valuation_date": {"type": "string"}
            }
        },
        "dto.CalculationResponse": {
            "type": "object",
            "properties": {
                "trace_id": {"type": "string"},
                "breakdown": {"type": "object"}
            }
        },
        "dto.CalculationRecordResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "trace_id": {"type": "string"},
                "vehicle_type": {"type": "string"},
                "total_customs": {"type": "number"},
                "total_payments": {"type": "number"},
                "valuation_date": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "dto.DialogueRequest": {
            "type": "object",
            "properties": {
                "answer": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "dto.DialogueResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "kind": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "error": {"type": "string"},
                "cancelled": {"type": "boolean"}
            }
        },
        "dto.StatsResponse": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "unique_users": {"type": "integer"},
                "last_24h": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Customs Calculator API",
	Description:      "Ukrainian customs payments calculator for imported vehicles",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
