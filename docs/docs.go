// Package docs registra la especificación OpenAPI para /swagger.
// Se regenera con `swag init -g cmd/api/main.go` a partir de las anotaciones de los handlers.
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
        "/providers": {
            "get": {"tags": ["providers"], "summary": "Listar veterinarios", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/providers/{providerID}/slots": {
            "get": {
                "tags": ["bookings"],
                "summary": "Slots disponibles de un veterinario",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "providerID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "unauthorized"}, "404": {"description": "not found"}}
            }
        },
        "/bookings": {
            "get": {"tags": ["bookings"], "summary": "Listar mis bookings", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["bookings"],
                "summary": "Reservar turno o videoconsulta",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "Idempotency-Key", "in": "header"}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "validation error"}, "409": {"description": "slot not available"}, "503": {"description": "storage unavailable"}}
            }
        },
        "/bookings/{bookingID}/cancel": {
            "post": {"tags": ["bookings"], "summary": "Cancelar booking", "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}, "409": {"description": "invalid state"}}}
        },
        "/bookings/{bookingID}/reschedule": {
            "post": {"tags": ["bookings"], "summary": "Reprogramar booking", "responses": {"201": {"description": "Created"}, "409": {"description": "slot not available"}}}
        },
        "/pets": {
            "get": {"tags": ["pets"], "summary": "Listar mis mascotas", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["pets"], "summary": "Registrar mascota", "responses": {"201": {"description": "Created"}}}
        },
        "/me/dashboard": {
            "get": {"tags": ["dashboard"], "summary": "Pantalla de inicio", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Furrchum Vet API",
	Description:      "Mascotas, historia clínica y reservas con veterinarios.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
