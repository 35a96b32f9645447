// Package testsupport holds schema fixtures and helpers shared by tests and
// examples.
package testsupport

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/schema"
)

// SignupOpenAPI is an OpenAPI document with one operation, createUser,
// whose body covers every binding kind: scalars, an enum, a boolean, an
// enum array, a nested object and a list of objects.
const SignupOpenAPI = `{
  "openapi": "3.0.3",
  "info": { "title": "Users", "version": "1.0.0" },
  "paths": {
    "/users": {
      "post": {
        "operationId": "createUser",
        "summary": "Create user",
        "description": "Registers a new account.",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": { "$ref": "#/components/schemas/Signup" }
            }
          }
        },
        "responses": { "201": { "description": "created" } }
      }
    },
    "/users/{id}": {
      "get": {
        "operationId": "getUser",
        "parameters": [
          { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } }
        ],
        "responses": { "200": { "description": "ok" } }
      }
    }
  },
  "components": {
    "schemas": {
      "Signup": {
        "type": "object",
        "required": ["name", "emails"],
        "properties": {
          "name": {
            "type": "string",
            "minLength": 2,
            "x-formbind-placeholder": "Ada Lovelace"
          },
          "role": { "type": "string", "enum": ["user", "admin"] },
          "newsletter": { "type": "boolean", "default": true },
          "tags": {
            "type": "array",
            "items": { "type": "string", "enum": ["go", "rust", "zig"] }
          },
          "address": {
            "type": "object",
            "properties": {
              "street": { "type": "string" },
              "city": { "type": "string" }
            }
          },
          "emails": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["address"],
              "properties": {
                "address": { "type": "string", "format": "email", "title": "Email" }
              }
            }
          }
        }
      }
    }
  }
}`

// ProfileSchema is a bare JSON Schema document in YAML.
const ProfileSchema = `
title: Profile
type: object
required: [displayName]
properties:
  displayName:
    type: string
    minLength: 3
  age:
    type: integer
    minimum: 0
  settings:
    type: object
  bio:
    type: string
    x-formbind-multiline: true
`

// Document wraps raw as a schema document located at name.
func Document(t *testing.T, name, raw string) schema.Document {
	t.Helper()
	doc, err := schema.NewDocument(schema.SourceFromFS(name), []byte(raw))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return doc
}

// DecodeJSON decodes raw into a generic value.
func DecodeJSON(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return out
}
