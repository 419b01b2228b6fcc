// Package api holds the Swagger document of the layersdb REST API. Regenerate
// it with `swag init -g cmd/server/main.go -o docs/api`.
package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/localnerve/layersdb",
            "email": "info@localnerve.com"
        },
        "license": {
            "name": "AGPL-3.0",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/tables": {
            "get": {"tags": ["Tables"], "summary": "List tables", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Tables"], "summary": "Create a table", "security": [{"CookieAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/tables/import": {
            "post": {"tags": ["Tables"], "summary": "Import a feature collection", "security": [{"CookieAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/tables/{id}": {
            "get": {"tags": ["Tables"], "summary": "Get a table", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Tables"], "summary": "Rename a table", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Tables"], "summary": "Delete a table", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/tables/{id}/fields": {
            "get": {"tags": ["Fields"], "summary": "List the fields of a table", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Fields"], "summary": "Add a field", "security": [{"CookieAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/fields/{id}": {
            "get": {"tags": ["Fields"], "summary": "Get a field", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Fields"], "summary": "Rename a field", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Fields"], "summary": "Delete a field", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/tablesdata/{id}/data": {
            "get": {"tags": ["Data"], "summary": "List rows", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Data"], "summary": "Insert a row", "security": [{"CookieAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/tablesdata/{id}/data/{row}": {
            "get": {"tags": ["Data"], "summary": "Get a row", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Data"], "summary": "Update a row", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Data"], "summary": "Delete a row", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/tablesdata/{id}/data/{row}/files": {
            "get": {"tags": ["Files"], "summary": "List the files attached to a row", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Files"], "summary": "Attach a file to a row", "security": [{"CookieAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/files/{id}": {
            "get": {"tags": ["Files"], "summary": "Download an attached file", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Files"], "summary": "Delete an attached file", "security": [{"CookieAuth": []}], "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "CookieAuth": {
            "type": "apiKey",
            "name": "cookie_session",
            "in": "cookie"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:3000",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "LayersDB API",
	Description:      "User defined spatial tables over a relational database",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
