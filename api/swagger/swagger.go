package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Codex Workspace API",
        "description": "Content workspace with archive items and ordered groups",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, refresh, logout"},
        {"name": "Items", "description": "Archive item management"},
        {"name": "Groups", "description": "Ordered item groups"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens rotated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "User info", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Admin"],
                "summary": "List user accounts",
                "parameters": [
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Paged accounts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Admin role required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/users/{id}/active": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Enable or disable an account",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"type": "object", "properties": {"active": {"type": "boolean"}}}}
                ],
                "responses": {
                    "204": {"description": "Account updated"},
                    "403": {"description": "Admin role required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown user", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/workspace": {
            "get": {
                "tags": ["Groups"],
                "summary": "Top-level workspace view",
                "description": "Group parents and ungrouped items; group children stay hidden behind their group",
                "parameters": [
                    {"in": "query", "name": "kind", "type": "string"},
                    {"in": "query", "name": "tag", "type": "string"},
                    {"in": "query", "name": "search", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Workspace listing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/items": {
            "post": {
                "tags": ["Items"],
                "summary": "Create a link or note item",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateItemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Item created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Items"],
                "summary": "List items",
                "parameters": [
                    {"in": "query", "name": "kind", "type": "string"},
                    {"in": "query", "name": "tag", "type": "string"},
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Item listing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/items/upload": {
            "post": {
                "tags": ["Items"],
                "summary": "Upload a file-backed item",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "kind", "type": "string", "required": true},
                    {"in": "formData", "name": "title", "type": "string", "required": true},
                    {"in": "formData", "name": "description", "type": "string"},
                    {"in": "formData", "name": "tags", "type": "string"},
                    {"in": "formData", "name": "file", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Item created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/items/{id}": {
            "get": {
                "tags": ["Items"],
                "summary": "Get item metadata",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Item metadata", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Items"],
                "summary": "Update item metadata",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "Item updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Items"],
                "summary": "Delete an item",
                "description": "Group parents are refused; dissolve the group instead",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Item anchors a group", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/items/{id}/download": {
            "get": {
                "tags": ["Items"],
                "summary": "Download item content via signed token",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "token", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/items/{id}/group": {
            "delete": {
                "tags": ["Groups"],
                "summary": "Detach an item from its group",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Detached (no-op when ungrouped)"},
                    "409": {"description": "Parents cannot be detached", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/groups": {
            "post": {
                "tags": ["Groups"],
                "summary": "Create a group from an existing item",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateGroupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Group created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Kind cannot be grouped", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Item already grouped", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/groups/{id}": {
            "get": {
                "tags": ["Groups"],
                "summary": "Group with ordered children and stats",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Group view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Groups"],
                "summary": "Update group name or description",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateGroupRequest"}}
                ],
                "responses": {
                    "200": {"description": "Group updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Groups"],
                "summary": "Dissolve a group",
                "description": "Children are detached back to the top level, then the parent item is deleted",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Group dissolved"},
                    "500": {"description": "Children detached but parent deletion failed; retry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/groups/{id}/items": {
            "get": {
                "tags": ["Groups"],
                "summary": "Group children in display order",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Ordered children", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Groups"],
                "summary": "Attach an item to a group",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/AddGroupItemRequest"}}
                ],
                "responses": {
                    "204": {"description": "Attached"},
                    "403": {"description": "Owner mismatch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Item already grouped", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/groups/{id}/stats": {
            "get": {
                "tags": ["Groups"],
                "summary": "Group aggregates",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Item count and total size", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/groups/{id}/next-part": {
            "get": {
                "tags": ["Groups"],
                "summary": "Suggest the next part number",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Suggested slot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codex/groups/{id}/export": {
            "get": {
                "tags": ["Groups"],
                "summary": "Export a group manifest",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Manifest file"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "CreateItemRequest": {
            "type": "object",
            "required": ["kind", "title"],
            "properties": {
                "kind": {"type": "string", "enum": ["link", "note"]},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "url": {"type": "string"}
            }
        },
        "UpdateItemRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateGroupRequest": {
            "type": "object",
            "required": ["parentItemId", "name"],
            "properties": {
                "parentItemId": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "UpdateGroupRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "AddGroupItemRequest": {
            "type": "object",
            "required": ["itemId"],
            "properties": {
                "itemId": {"type": "string"},
                "partNumber": {"type": "integer", "minimum": 1}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
