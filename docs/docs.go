// Package docs registers the API's Swagger document with swag so that
// http-swagger can serve it under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "ApiKey": {"type": "apiKey", "in": "header", "name": "Authorization", "description": "Bearer <api key>"},
        "AdminToken": {"type": "apiKey", "in": "header", "name": "Authorization", "description": "Bearer <admin jwt>"}
    },
    "paths": {
        "/health": {
            "get": {"tags": ["health"], "summary": "Liveness and database check", "responses": {"200": {"description": "healthy"}, "503": {"description": "database unreachable"}}}
        },
        "/api/events": {
            "get": {
                "tags": ["events"], "summary": "List the team's events with up to three thumbnails each",
                "security": [{"ApiKey": []}],
                "responses": {"200": {"description": "events", "schema": {"type": "array", "items": {"$ref": "#/definitions/Event"}}}}
            },
            "post": {
                "tags": ["events"], "summary": "Create an event and notify the team",
                "security": [{"ApiKey": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/EventInput"}}],
                "responses": {"204": {"description": "created"}, "422": {"description": "validation failed"}}
            }
        },
        "/api/events/{id}": {
            "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
            "get": {"tags": ["events"], "security": [{"ApiKey": []}], "responses": {"200": {"description": "event", "schema": {"$ref": "#/definitions/Event"}}, "404": {"description": "not found"}}},
            "put": {
                "tags": ["events"], "summary": "Partially update an event",
                "security": [{"ApiKey": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/EventInput"}}],
                "responses": {"200": {"description": "updated", "schema": {"$ref": "#/definitions/Event"}}, "404": {"description": "not found"}}
            },
            "delete": {
                "tags": ["events"], "summary": "Delete an event without media",
                "security": [{"ApiKey": []}],
                "responses": {"204": {"description": "deleted"}, "404": {"description": "not found"}, "409": {"description": "event still has media"}}
            }
        },
        "/api/media": {
            "get": {
                "tags": ["media"], "summary": "Team media feed, newest first",
                "security": [{"ApiKey": []}],
                "parameters": [
                    {"in": "query", "name": "limit", "type": "integer", "minimum": 1, "maximum": 100, "default": 20},
                    {"in": "query", "name": "cursor", "type": "integer", "description": "id of the last item already seen"}
                ],
                "responses": {"200": {"description": "page", "schema": {"$ref": "#/definitions/FeedPage"}}, "422": {"description": "invalid limit"}}
            },
            "post": {
                "tags": ["media"], "summary": "Confirm a batch of uploaded objects",
                "security": [{"ApiKey": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ConfirmUploads"}}],
                "responses": {
                    "204": {"description": "recorded"},
                    "400": {"description": "object missing from storage"},
                    "403": {"description": "storage quota exceeded"},
                    "404": {"description": "event not found"},
                    "409": {"description": "object already recorded"},
                    "422": {"description": "invalid batch or key repeated in the batch"},
                    "502": {"description": "object storage unavailable"}
                }
            }
        },
        "/api/media/presigned-url": {
            "post": {
                "tags": ["media"], "summary": "Issue presigned POST targets for an original and its thumbnail",
                "security": [{"ApiKey": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/UploadRequest"}}],
                "responses": {"200": {"description": "targets", "schema": {"$ref": "#/definitions/UploadTargets"}}, "403": {"description": "storage quota exceeded"}}
            }
        },
        "/api/media/{id}": {
            "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
            "get": {"tags": ["media"], "security": [{"ApiKey": []}], "responses": {"200": {"description": "media", "schema": {"$ref": "#/definitions/Media"}}, "404": {"description": "not found"}}},
            "delete": {"tags": ["media"], "summary": "Delete own media", "security": [{"ApiKey": []}], "responses": {"204": {"description": "deleted"}, "403": {"description": "not the uploader"}, "404": {"description": "not found"}}}
        },
        "/api/users/me": {
            "get": {"tags": ["users"], "security": [{"ApiKey": []}], "responses": {"200": {"description": "profile with team usage and friends"}}}
        },
        "/api/users/push-token": {
            "put": {"tags": ["users"], "security": [{"ApiKey": []}], "responses": {"204": {"description": "updated"}}}
        },
        "/api/users/profile-image/presigned-url": {
            "post": {"tags": ["users"], "security": [{"ApiKey": []}], "responses": {"200": {"description": "upload target", "schema": {"$ref": "#/definitions/PresignedUpload"}}}}
        },
        "/api/users/profile-image": {
            "put": {"tags": ["users"], "security": [{"ApiKey": []}], "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object", "required": ["url"], "properties": {"url": {"type": "string"}}}}], "responses": {"204": {"description": "updated"}}}
        },
        "/ws": {
            "get": {"tags": ["realtime"], "summary": "Team notification stream (websocket); the API key may be passed as ?token=", "responses": {"101": {"description": "switching protocols"}}}
        },
        "/admin/login": {
            "post": {"tags": ["admin"], "responses": {"200": {"description": "admin token"}, "401": {"description": "invalid credentials"}}}
        },
        "/admin/teams": {
            "get": {"tags": ["admin"], "security": [{"AdminToken": []}], "responses": {"200": {"description": "teams"}}},
            "post": {"tags": ["admin"], "security": [{"AdminToken": []}], "responses": {"201": {"description": "team"}}}
        },
        "/admin/teams/{id}/storage-limit": {
            "put": {"tags": ["admin"], "security": [{"AdminToken": []}], "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}], "responses": {"200": {"description": "team"}}}
        },
        "/admin/teams/{id}/reconcile": {
            "post": {"tags": ["admin"], "summary": "Recompute storage usage from media sizes", "security": [{"AdminToken": []}], "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}], "responses": {"200": {"description": "team"}}}
        },
        "/admin/users": {
            "post": {"tags": ["admin"], "summary": "Create a user and issue its API key", "security": [{"AdminToken": []}], "responses": {"201": {"description": "user and api_key"}}}
        },
        "/admin/users/{id}/rotate-key": {
            "post": {"tags": ["admin"], "security": [{"AdminToken": []}], "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}], "responses": {"200": {"description": "user and new api_key"}}}
        }
    },
    "definitions": {
        "Event": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "location": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "team_id": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"},
                "thumbnails": {"type": "array", "items": {"type": "string"}}
            }
        },
        "EventInput": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "location": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Media": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "event_id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "url": {"type": "string"},
                "thumb_url": {"type": "string"},
                "file_type": {"type": "string"},
                "file_size": {"type": "integer"},
                "file_metadata": {"type": "object"},
                "created_at": {"type": "string", "format": "date-time"},
                "user": {"type": "object", "properties": {"id": {"type": "integer"}, "name": {"type": "string"}, "profile_img": {"type": "string"}}}
            }
        },
        "FeedPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/Media"}},
                "cursor": {"type": "integer"},
                "has_more": {"type": "boolean"}
            }
        },
        "UploadRequest": {
            "type": "object",
            "required": ["event_id", "file_name", "content_type"],
            "properties": {
                "event_id": {"type": "integer"},
                "file_name": {"type": "string"},
                "content_type": {"type": "string"},
                "file_size": {"type": "integer"},
                "thumbnail_file_name": {"type": "string"},
                "thumbnail_content_type": {"type": "string"}
            }
        },
        "PresignedUpload": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "key": {"type": "string"}
            }
        },
        "UploadTargets": {
            "type": "object",
            "properties": {
                "original": {"$ref": "#/definitions/PresignedUpload"},
                "thumbnail": {"$ref": "#/definitions/PresignedUpload"}
            }
        },
        "ConfirmUploads": {
            "type": "object",
            "required": ["media_list"],
            "properties": {
                "media_list": {
                    "type": "array", "minItems": 1, "maxItems": 50,
                    "items": {
                        "type": "object",
                        "required": ["event_id", "s3_key", "thumb_s3_key"],
                        "properties": {
                            "event_id": {"type": "integer"},
                            "s3_key": {"type": "string"},
                            "thumb_s3_key": {"type": "string"},
                            "file_metadata": {"type": "object"}
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "timjs API",
	Description:      "Team event and media sharing API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
