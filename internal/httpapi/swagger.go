package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggo/swag"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SwaggerInfo describes the control API. It is registered with swag under
// the default instance name so that http-swagger serves it as doc.json.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "epubbridge control API",
	Description:      "Start, stop and configure the local EPUB converter server.",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the Swagger UI and doc.json under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Converter status",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.StatusResponse"
                        }
                    }
                }
            }
        },
        "/start": {
            "post": {
                "produces": ["application/json"],
                "summary": "Start the converter and wait until it is ready",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.StatusResponse"
                        }
                    },
                    "503": {
                        "description": "Spawn failure",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "504": {
                        "description": "Startup timeout",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/stop": {
            "post": {
                "produces": ["application/json"],
                "summary": "Stop the converter",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.StatusResponse"
                        }
                    }
                }
            }
        },
        "/events": {
            "get": {
                "produces": ["application/json"],
                "summary": "Recent converter lifecycle events",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.EventsResponse"
                        }
                    }
                }
            }
        },
        "/open": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Start the converter if needed and configure it with a vault",
                "parameters": [
                    {
                        "description": "Vault to open",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ProjectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ProjectResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request or vault",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Converter unreachable",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/project": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Configure a running converter with a vault",
                "parameters": [
                    {
                        "description": "Vault to configure",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ProjectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ProjectResponse"
                        }
                    },
                    "502": {
                        "description": "Converter unreachable",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/healthz": {
            "get": {
                "summary": "Liveness of the bridge",
                "responses": {
                    "200": {
                        "description": "ok"
                    }
                }
            }
        },
        "/readyz": {
            "get": {
                "summary": "Readiness of the converter",
                "responses": {
                    "200": {
                        "description": "ready"
                    },
                    "503": {
                        "description": "not running"
                    }
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer",
                    "example": 400
                },
                "error": {
                    "type": "string",
                    "example": "invalid JSON body"
                }
            }
        },
        "types.EventRecord": {
            "type": "object",
            "properties": {
                "at_unix": {
                    "type": "integer",
                    "example": 1700000000
                },
                "fields": {
                    "type": "object",
                    "additionalProperties": true
                },
                "name": {
                    "type": "string",
                    "example": "spawn_ready"
                },
                "pid": {
                    "type": "integer",
                    "example": 12345
                }
            }
        },
        "types.EventsResponse": {
            "type": "object",
            "properties": {
                "events": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.EventRecord"
                    }
                }
            }
        },
        "types.ProjectRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string",
                    "example": "Notes"
                },
                "path": {
                    "type": "string",
                    "example": "~/Notes"
                }
            }
        },
        "types.ProjectResponse": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string",
                    "example": "Notes"
                },
                "path": {
                    "type": "string",
                    "example": "/home/user/Notes"
                },
                "url": {
                    "type": "string",
                    "example": "http://localhost:5002"
                }
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "base_url": {
                    "type": "string",
                    "example": "http://localhost:5002"
                },
                "last_exit": {
                    "type": "string"
                },
                "pid": {
                    "type": "integer",
                    "example": 12345
                },
                "running": {
                    "type": "boolean",
                    "example": true
                },
                "server_time_unix": {
                    "type": "integer",
                    "example": 1700000000
                },
                "started_unix": {
                    "type": "integer",
                    "example": 1700000000
                },
                "state": {
                    "type": "string",
                    "example": "running"
                }
            }
        }
    }
}`
