// Package docs registers the OpenAPI description of the mediai HTTP API
// with swag so http-swagger can serve it at /swagger/doc.json.
//
// Regenerate with: swag init -g internal/transport/http/http.go -o internal/docs
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
        "/api/session": {
            "get": {
                "description": "Returns every turn with its synthesized audio, the current step and the last notice.",
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Get the conversation",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.SessionView"}}
                }
            }
        },
        "/api/session/reset": {
            "post": {
                "description": "Discards the transcript and reseeds the greeting. A turn still in flight is dropped when it finishes.",
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Start over",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.SessionView"}}
                }
            }
        },
        "/api/session/ws": {
            "get": {
                "description": "Upgrades to a WebSocket and sends a SessionView JSON message on connect and after every change.",
                "tags": ["session"],
                "summary": "Watch the conversation",
                "responses": {
                    "101": {"description": "Switching Protocols", "schema": {"type": "string"}}
                }
            }
        },
        "/api/turns": {
            "post": {
                "description": "Appends the user turn, asks the model, and appends the voiced answer and optional follow-up question.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["turns"],
                "summary": "Send a typed message",
                "parameters": [
                    {
                        "description": "User message",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.SubmitTextRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.SessionView"}},
                    "400": {"description": "Missing or invalid text", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "409": {"description": "A reply is still pending", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "502": {"description": "Completion, parsing or synthesis failed", "schema": {"$ref": "#/definitions/message.ErrorResponse"}}
                }
            }
        },
        "/api/voice": {
            "post": {
                "description": "POST the raw recording with its audio MIME type. It is transcribed and handled like a typed message.",
                "consumes": ["audio/webm", "audio/ogg", "audio/wav"],
                "produces": ["application/json"],
                "tags": ["turns"],
                "summary": "Send a spoken message",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.SessionView"}},
                    "400": {"description": "Empty body", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "409": {"description": "A reply is still pending", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "413": {"description": "Recording larger than 25 MB", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "422": {"description": "Speech could not be recognized", "schema": {"$ref": "#/definitions/message.ErrorResponse"}},
                    "502": {"description": "Completion, parsing or synthesis failed", "schema": {"$ref": "#/definitions/message.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "message.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "kind": {"type": "string", "enum": ["recognition", "completion", "unparseable", "synthesis"]},
                "session": {"$ref": "#/definitions/message.SessionView"}
            }
        },
        "message.SessionView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "step": {"type": "string", "enum": ["awaiting_input", "processing"]},
                "notice": {"type": "string"},
                "version": {"type": "integer"},
                "turns": {"type": "array", "items": {"$ref": "#/definitions/message.TurnView"}}
            }
        },
        "message.SubmitTextRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"}
            }
        },
        "message.TurnView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "assistant"]},
                "content": {"type": "string"},
                "kind": {"type": "string", "enum": ["text", "voice", "answer", "question"]},
                "autoplay": {"type": "boolean"},
                "audio": {"type": "string"},
                "audio_content_type": {"type": "string"},
                "created_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "MediAI API",
	Description:      "Voice-enabled medical symptom assistant: typed and spoken turns, voiced answers with an optional follow-up question.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
