// Package docs registers the OpenAPI document served under /docs.
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
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {"get": {"tags": ["App"], "summary": "Liveness check", "responses": {"200": {"description": "healthy"}}}},
        "/stats": {"get": {"tags": ["App"], "summary": "Database size, WAL frames and table counts", "responses": {"200": {"description": "OK"}}}},
        "/admin/optimize": {"post": {"tags": ["App"], "security": [{"BearerAuth": []}], "summary": "ANALYZE and truncate the WAL", "responses": {"200": {"description": "optimized"}}}},
        "/admin/backup": {"post": {"tags": ["App"], "security": [{"BearerAuth": []}], "summary": "Snapshot the database to object storage", "responses": {"200": {"description": "backed up"}, "503": {"description": "storage not configured"}}}},
        "/api/auth/register": {"post": {"tags": ["Authentication"], "summary": "Register with a Kenyan chess.com account", "responses": {"201": {"description": "token and player"}}}},
        "/api/auth/login": {"post": {"tags": ["Authentication"], "summary": "OAuth2 password form login", "consumes": ["application/x-www-form-urlencoded"], "responses": {"200": {"description": "token and player"}}}},
        "/api/auth/login/json": {"post": {"tags": ["Authentication"], "summary": "Rate limited JSON login", "responses": {"200": {"description": "token and player"}, "429": {"description": "locked out"}}}},
        "/api/auth/me": {"get": {"tags": ["Authentication"], "security": [{"BearerAuth": []}], "summary": "Current player", "responses": {"200": {"description": "OK"}}}},
        "/api/auth/verify/{username}": {"get": {"tags": ["Authentication"], "summary": "Look up a chess.com username", "parameters": [{"name": "username", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/api/auth/request-reset": {"post": {"tags": ["Authentication"], "summary": "Send a password reset OTP by SMS", "responses": {"200": {"description": "OK"}, "429": {"description": "cooldown"}}}},
        "/api/auth/reset-password": {"post": {"tags": ["Authentication"], "summary": "Reset the password with an OTP", "responses": {"200": {"description": "OK"}}}},
        "/api/players/leaderboard/global": {"get": {"tags": ["Players"], "summary": "All-time leaderboard", "responses": {"200": {"description": "OK"}}}},
        "/api/players/{playerID}": {"get": {"tags": ["Players"], "summary": "Player profile", "parameters": [{"name": "playerID", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}},
        "/api/tournaments/": {
            "get": {"tags": ["Tournaments"], "summary": "Search and filter tournaments", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Tournaments"], "security": [{"BearerAuth": []}], "summary": "Create a tournament", "responses": {"201": {"description": "created"}}}
        },
        "/api/tournaments/{tournamentID}/join": {"post": {"tags": ["Tournaments"], "security": [{"BearerAuth": []}], "summary": "Join a tournament", "parameters": [{"name": "tournamentID", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "402": {"description": "paid tournament"}, "403": {"description": "not eligible"}}}},
        "/api/tournaments/{tournamentID}/standings": {"get": {"tags": ["Tournaments"], "summary": "Standings with tiebreaks", "parameters": [{"name": "tournamentID", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/api/tournaments/{tournamentID}/generate-pairings": {"post": {"tags": ["Pairings"], "security": [{"BearerAuth": []}], "summary": "Pair the next round", "parameters": [{"name": "tournamentID", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/api/tournaments/{tournamentID}/pairings": {"get": {"tags": ["Pairings"], "summary": "List pairings", "parameters": [{"name": "tournamentID", "in": "path", "required": true, "type": "string"}, {"name": "round_number", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/api/matches/my-matches": {"get": {"tags": ["Matches"], "security": [{"BearerAuth": []}], "summary": "Games across all tournaments", "responses": {"200": {"description": "OK"}}}},
        "/api/notifications/": {"get": {"tags": ["Notifications"], "security": [{"BearerAuth": []}], "summary": "In-app notifications", "responses": {"200": {"description": "OK"}}}},
        "/api/utils/calculate-rounds": {"get": {"tags": ["Utilities"], "summary": "Rounds needed for a format and field size", "parameters": [{"name": "format", "in": "query", "required": true, "type": "string"}, {"name": "player_count", "in": "query", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/clubs/": {"get": {"tags": ["Clubs"], "summary": "List clubs", "responses": {"200": {"description": "OK"}}}},
        "/ws": {"get": {"tags": ["WebSocket"], "summary": "Realtime tournament events", "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}], "responses": {"101": {"description": "switching protocols"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ChessKenya API",
	Description:      "Kenyan Chess Tournament Management System",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
