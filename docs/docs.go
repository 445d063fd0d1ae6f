//go:build swagger

// Package docs holds the OpenAPI document served under /swagger/ when built
// with -tags=swagger. Regenerate with `make swagger-gen`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "scriptd maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/modules": {
            "get": {
                "description": "Modules found in the modules directory for the active engine.",
                "produces": ["application/json"],
                "tags": ["modules"],
                "summary": "List modules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModulesResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Runtime status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/invoke": {
            "post": {
                "description": "Calls module.entry with the given arguments, either on the request goroutine or on the worker pool.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["invoke"],
                "summary": "Invoke an entry point",
                "parameters": [
                    {"description": "Invocation", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/types.InvokeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InvokeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/invocations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["invocations"],
                "summary": "Recent invocations",
                "parameters": [
                    {"type": "string", "description": "Filter by module", "name": "module", "in": "query"},
                    {"type": "integer", "description": "Page size (default 50, max 500)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InvocationsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/invocations/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["invocations"],
                "summary": "One journal record",
                "parameters": [
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InvocationRecord"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.Callable": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "module": {"type": "string"},
                "entry": {"type": "string"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.InvocationRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "event": {"type": "string"},
                "module": {"type": "string"},
                "entry": {"type": "string"},
                "mode": {"type": "string"},
                "outcome": {"type": "string"},
                "error": {"type": "string"},
                "time_unix_ms": {"type": "integer"}
            }
        },
        "types.InvocationsResponse": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"$ref": "#/definitions/types.InvocationRecord"}},
                "total": {"type": "integer", "example": 120}
            }
        },
        "types.InvokeRequest": {
            "type": "object",
            "properties": {
                "module": {"type": "string", "example": "math.add"},
                "entry": {"type": "string", "example": "invoke"},
                "args": {"type": "array", "items": {"type": "object"}},
                "async": {"type": "boolean", "example": false}
            }
        },
        "types.InvokeResponse": {
            "type": "object",
            "properties": {
                "module": {"type": "string", "example": "math.add"},
                "entry": {"type": "string", "example": "invoke"},
                "result": {"type": "object"},
                "mode": {"type": "string", "example": "sync"},
                "duration_ms": {"type": "integer", "example": 3}
            }
        },
        "types.Module": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "path": {"type": "string"},
                "size": {"type": "integer"}
            }
        },
        "types.ModulesResponse": {
            "type": "object",
            "properties": {
                "modules": {"type": "array", "items": {"$ref": "#/definitions/types.Module"}}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "example": "running"},
                "engine": {"type": "string", "example": "js"},
                "ref_count": {"type": "integer", "example": 1},
                "workers": {"type": "integer", "example": 16},
                "queue_len": {"type": "integer", "example": 0},
                "queue_cap": {"type": "integer", "example": 1024},
                "accepting": {"type": "boolean"},
                "exec_lock_held": {"type": "boolean"},
                "lifecycle_thread": {"type": "integer", "example": 4242},
                "callables": {"type": "array", "items": {"$ref": "#/definitions/types.Callable"}},
                "tasks_submitted": {"type": "integer"},
                "tasks_completed": {"type": "integer"},
                "tasks_failed": {"type": "integer"},
                "tasks_cancelled": {"type": "integer"},
                "tasks_rejected": {"type": "integer"},
                "error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "scriptd API",
	Description:      "HTTP API for invoking functions of modules hosted on one embedded runtime.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
