// Package docs registers the gateway's swagger document
package docs

import "github.com/swaggo/swag"

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "SessionToken": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/login": {
            "post": {"tags": ["auth"], "summary": "Researcher login", "responses": {"200": {"description": "token"}, "401": {"description": "invalid credentials"}}}
        },
        "/surveys/{surveyId}/sessions": {
            "post": {"tags": ["sessions"], "summary": "Start a respondent session", "responses": {"201": {"description": "session"}, "404": {"description": "survey not found or server error"}}}
        },
        "/sessions/{sessionId}": {
            "get": {"tags": ["sessions"], "summary": "Current conversation snapshot", "security": [{"SessionToken": []}], "responses": {"200": {"description": "snapshot"}, "404": {"description": "session not found"}}}
        },
        "/sessions/{sessionId}/messages": {
            "post": {"tags": ["sessions"], "summary": "Submit a respondent input", "security": [{"SessionToken": []}], "responses": {"200": {"description": "snapshot"}, "400": {"description": "empty input"}, "409": {"description": "busy or complete"}, "429": {"description": "rate limit exceeded"}}}
        },
        "/dashboard": {
            "get": {"tags": ["researcher"], "summary": "Survey list with totals", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "dashboard"}, "502": {"description": "backend unavailable"}}}
        },
        "/surveys/generate": {
            "post": {"tags": ["researcher"], "summary": "Generate a survey from a research goal", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "survey"}, "400": {"description": "empty goal"}, "502": {"description": "generation failed"}}}
        },
        "/surveys/{surveyId}": {
            "delete": {"tags": ["researcher"], "summary": "Delete a survey and all its data", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "dashboard"}, "428": {"description": "confirmation required"}, "502": {"description": "delete failed"}}}
        },
        "/surveys/{surveyId}/insights": {
            "get": {"tags": ["researcher"], "summary": "Survey, stats and insight report", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "insights"}, "502": {"description": "load failed"}}}
        },
        "/surveys/{surveyId}/insights/generate": {
            "post": {"tags": ["researcher"], "summary": "Run insight synthesis", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "insights"}, "409": {"description": "no responses yet"}, "502": {"description": "generation failed"}}}
        },
        "/surveys/{surveyId}/share": {
            "get": {"tags": ["researcher"], "summary": "Public links of a survey", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "links"}}}
        },
        "/surveys/{surveyId}/transcripts": {
            "get": {"tags": ["researcher"], "summary": "Archived conversational transcripts", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "transcripts"}}}
        },
        "/ws/sessions/{sessionId}": {
            "get": {"tags": ["sessions"], "summary": "Live transcript stream (WebSocket)", "responses": {"101": {"description": "switching protocols"}, "401": {"description": "invalid token"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "InsightAI Gateway API",
	Description:      "Respondent chat sessions and researcher views over the survey backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
