// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/imports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["imports"],
                "summary": "List recent import batches of a venue",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venue_id", "in": "query", "required": true},
                    {"type": "integer", "description": "Maximum number of batches", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "description": "Upload a CSV, XLSX, camt.053 XML or CBI fixed-width statement for a venue",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["imports"],
                "summary": "Import a bank statement",
                "parameters": [
                    {"type": "file", "description": "Statement file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Venue ID", "name": "venue_id", "in": "formData", "required": true},
                    {"type": "string", "description": "Delimited profile name", "name": "profile", "in": "formData"},
                    {"type": "string", "description": "Fixed-width layout name", "name": "layout", "in": "formData"},
                    {"type": "string", "description": "Inline parser configuration (JSON)", "name": "config", "in": "formData"},
                    {"type": "string", "description": "Operator name", "name": "imported_by", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/imports/{batch_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["imports"],
                "summary": "Get an import batch",
                "parameters": [
                    {"type": "string", "description": "Batch ID", "name": "batch_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/transactions": {
            "get": {
                "description": "Filter a venue's transactions by status, date range and free text, with per-status counts",
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "List bank transactions",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venue_id", "in": "query", "required": true},
                    {"enum": ["PENDING", "MATCHED", "TO_REVIEW", "UNMATCHED", "MANUAL", "IGNORED"], "type": "string", "description": "Status", "name": "status", "in": "query"},
                    {"type": "string", "description": "From date (YYYY-MM-DD)", "name": "from", "in": "query"},
                    {"type": "string", "description": "To date (YYYY-MM-DD)", "name": "to", "in": "query"},
                    {"type": "string", "description": "Search in description and bank reference", "name": "q", "in": "query"},
                    {"type": "integer", "description": "Page (1-based)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 500)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/transactions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Get a bank transaction",
                "parameters": [
                    {"type": "string", "description": "Transaction ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/transactions/{id}/match": {
            "post": {
                "description": "Settle a PENDING, TO_REVIEW or UNMATCHED transaction against a ledger entry",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Match a transaction manually",
                "parameters": [
                    {"type": "string", "description": "Transaction ID", "name": "id", "in": "path", "required": true},
                    {"description": "Ledger entry and account", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ManualMatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/transactions/{id}/ignore": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Ignore a transaction",
                "parameters": [
                    {"type": "string", "description": "Transaction ID", "name": "id", "in": "path", "required": true},
                    {"description": "Actor", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/handler.IgnoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/transactions/{id}/classify": {
            "post": {
                "produces": ["application/json"],
                "tags": ["reconciliation"],
                "summary": "Classify one transaction",
                "parameters": [
                    {"type": "string", "description": "Transaction ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/reconcile": {
            "post": {
                "description": "Classify the PENDING, TO_REVIEW and UNMATCHED transactions of a venue, or the listed transactions",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reconciliation"],
                "summary": "Run reconciliation",
                "parameters": [
                    {"description": "Reconciliation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ReconcileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/rules": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "List reconciliation rules",
                "parameters": [
                    {"enum": ["emessi", "ricevuti"], "type": "string", "description": "Direction", "name": "direction", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "description": "The rule is appended at the end of its direction's list",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Create a reconciliation rule",
                "parameters": [
                    {"description": "Rule", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.RuleInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/rules/order": {
            "put": {
                "description": "rule_ids must list every rule of the direction exactly once",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Reorder the rules of a direction",
                "parameters": [
                    {"description": "New order", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ReorderRulesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/rules/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Update a reconciliation rule",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true},
                    {"description": "Rule", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.RuleInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Delete a reconciliation rule",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/rules/{id}/move-top": {
            "post": {
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Move a rule to the top of its direction",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/rules/{id}/move-bottom": {
            "post": {
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Move a rule to the bottom of its direction",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "domain.RulePredicate": {
            "type": "object",
            "properties": {
                "account_code": {"type": "string"},
                "document_type_code": {"type": "string"},
                "payment_type_code": {"type": "string"}
            }
        },
        "handler.IgnoreRequest": {
            "type": "object",
            "properties": {
                "actor": {"type": "string"}
            }
        },
        "handler.ManualMatchRequest": {
            "type": "object",
            "required": ["entry_id"],
            "properties": {
                "account_id": {"type": "string"},
                "actor": {"type": "string"},
                "entry_id": {"type": "string"}
            }
        },
        "handler.ReconcileRequest": {
            "type": "object",
            "properties": {
                "transaction_ids": {"type": "array", "items": {"type": "string"}},
                "venue_id": {"type": "string"}
            }
        },
        "handler.ReorderRulesRequest": {
            "type": "object",
            "required": ["direction", "rule_ids"],
            "properties": {
                "direction": {"type": "string", "enum": ["emessi", "ricevuti"]},
                "rule_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "response.ErrorDetail": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {},
                "message": {"type": "string"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/response.ErrorDetail"},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "service.RuleInput": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["AUTO_MATCH", "FLAG_REVIEW"]},
                "direction": {"type": "string", "enum": ["emessi", "ricevuti"]},
                "predicate": {"$ref": "#/definitions/domain.RulePredicate"},
                "target_account_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Bank Statement Reconciliation API",
	Description:      "Import bank statements, manage reconciliation rules and review matching results",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
