// Package docs registers the OpenAPI description served under /swagger/.
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/api/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "conflict"}}}},
        "/api/auth/login": {"post": {"tags": ["auth"], "summary": "Log in", "responses": {"200": {"description": "OK"}, "401": {"description": "unauthorized"}}}},
        "/api/auth/refresh-token": {"post": {"tags": ["auth"], "summary": "Rotate a refresh token", "responses": {"200": {"description": "OK"}, "401": {"description": "unauthorized"}}}},
        "/api/auth/logout": {"post": {"tags": ["auth"], "summary": "Log out", "responses": {"200": {"description": "OK"}}}},
        "/api/users/profile": {"get": {"tags": ["users"], "summary": "Get current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/users/recent-visitors": {"get": {"tags": ["users"], "summary": "Recent visitors", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/visitors": {
            "get": {"tags": ["visitors"], "summary": "List visitors", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["visitors"], "summary": "Register a visitor", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "conflict"}}}
        },
        "/api/visitors/{visitorID}": {
            "get": {"tags": ["visitors"], "summary": "Get a visitor", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "not_found"}}},
            "delete": {"tags": ["visitors"], "summary": "Delete a visitor", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/visitors/{visitorID}/status": {"patch": {"tags": ["visitors"], "summary": "Change a visitor's status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "invalid_transition"}}}},
        "/api/visitors/{visitorID}/approve": {"put": {"tags": ["visitors"], "summary": "Approve a visitor", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/visitors/{visitorID}/reject": {"put": {"tags": ["visitors"], "summary": "Reject a visitor", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/visitors/{visitorID}/expire": {"put": {"tags": ["visitors"], "summary": "Check a visitor out", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/visitors/{visitorID}/passes": {"post": {"tags": ["passes"], "summary": "Issue a pass", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "conflict"}}}},
        "/api/passes": {"get": {"tags": ["passes"], "summary": "List passes", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/passes/{passID}": {
            "get": {"tags": ["passes"], "summary": "Get a pass", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["passes"], "summary": "Delete a pass", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/passes/qr/{token}": {"get": {"tags": ["passes"], "summary": "Look up a pass by its QR token", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/guard/visitors": {"post": {"tags": ["guard"], "summary": "Register a walk-in visitor", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}},
        "/api/guard/visitors/pending": {"get": {"tags": ["guard"], "summary": "Pending walk-ins registered by me", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/guard/visitors/today/pending": {"get": {"tags": ["guard"], "summary": "Visitors registered today and still pending", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/guard/visitors/today/approved": {"get": {"tags": ["guard"], "summary": "Visitors admitted today", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/guard/hosts/{hostID}/visitors": {"get": {"tags": ["guard"], "summary": "Approved visitors of one host", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/guard/stats/today": {"get": {"tags": ["guard"], "summary": "Today's visitor counters", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/guard/scan/{passID}": {"post": {"tags": ["guard"], "summary": "Scan a pass at the gate", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "pass_expired"}, "409": {"description": "already_processed or already_approved"}}}},
        "/api/guard/scan/history": {"get": {"tags": ["guard"], "summary": "Passes I have scanned", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/notifications": {"get": {"tags": ["notifications"], "summary": "List my notifications", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/api/notifications/{notificationID}/read": {"put": {"tags": ["notifications"], "summary": "Mark a notification read", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Visitor Pass API",
	Description:      "Visitor registration, time-bound passes and gate scanning.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
