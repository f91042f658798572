package schema

import "encoding/json"

// Route ids double as the HTTP paths they describe.
const (
	RouteHealthz   = "/healthz"
	RouteProviders = "/v1/providers"
	RouteVoices    = "/v1/voices"
	RouteStatus    = "/v1/status"
	RouteTTS       = "/v1/tts"
	RouteSchema    = "/v1/schema"
)

// Contract is the declared request/response contract of one route.
type Contract struct {
	Request  json.RawMessage `json:"request"`
	Response json.RawMessage `json:"response"`
}

const draft = `"$schema": "http://json-schema.org/draft-07/schema#"`

const nullRequest = `{` + draft + `, "type": "null"}`

const voiceSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"displayName": {"type": "string"},
		"languageTag": {"type": "string", "minLength": 1},
		"gender": {"type": ["string", "null"], "enum": ["male", "female", "neutral", "unknown", null]},
		"meta": {"type": ["object", "null"]}
	},
	"required": ["id", "displayName", "languageTag"],
	"additionalProperties": false
}`

var table = map[string]Contract{
	RouteHealthz: {
		Request: json.RawMessage(nullRequest),
		Response: json.RawMessage(`{` + draft + `,
			"type": "object",
			"properties": {"status": {"type": "string", "const": "ok"}},
			"required": ["status"],
			"additionalProperties": false
		}`),
	},
	RouteProviders: {
		Request: json.RawMessage(nullRequest),
		Response: json.RawMessage(`{` + draft + `,
			"type": "object",
			"properties": {
				"providers": {"type": "array", "items": {"type": "string"}},
				"details": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"id": {"type": "string"},
							"displayName": {"type": "string"}
						},
						"required": ["id", "displayName"],
						"additionalProperties": false
					}
				}
			},
			"required": ["providers"],
			"additionalProperties": false
		}`),
	},
	RouteVoices: {
		Request: json.RawMessage(`{` + draft + `,
			"type": "object",
			"properties": {"provider": {"type": "string", "minLength": 1}},
			"required": ["provider"],
			"additionalProperties": false
		}`),
		Response: json.RawMessage(`{` + draft + `,
			"type": "object",
			"properties": {"voices": {"type": "array", "items": ` + voiceSchema + `}},
			"required": ["voices"],
			"additionalProperties": false
		}`),
	},
	RouteStatus: {
		Request: json.RawMessage(nullRequest),
		Response: json.RawMessage(`{` + draft + `,
			"type": "object",
			"additionalProperties": {"type": "string", "enum": ["ok", "degraded"]}
		}`),
	},
	RouteTTS: {
		Request: json.RawMessage(`{` + draft + `,
			"type": "object",
			"properties": {
				"provider": {"type": "string", "minLength": 1},
				"text": {"type": "string", "pattern": "[^\\t\\n\\v\\f\\r \\x{85}\\p{Z}]"},
				"language": {"type": ["string", "null"]},
				"voiceId": {"type": ["string", "null"]},
				"options": {
					"type": ["object", "null"],
					"properties": {
						"rate": {"type": ["number", "null"]},
						"pitch": {"type": ["number", "null"]},
						"emotion": {"type": ["string", "null"]},
						"format": {"type": ["string", "null"]},
						"providerExtra": {"type": ["object", "null"]}
					},
					"additionalProperties": false
				}
			},
			"required": ["provider", "text"],
			"additionalProperties": false
		}`),
		Response: json.RawMessage(`{` + draft + `,
			"type": "object",
			"properties": {"audioUrl": {"type": "string", "format": "uri"}},
			"required": ["audioUrl"],
			"additionalProperties": false
		}`),
	},
	RouteSchema: {
		Request:  json.RawMessage(nullRequest),
		Response: json.RawMessage(`{` + draft + `, "type": "object"}`),
	},
}

// Table returns the declared schema set. The result is a copy; callers may
// serialize it verbatim.
func Table() map[string]Contract {
	out := make(map[string]Contract, len(table))
	for route, s := range table {
		out[route] = Contract{
			Request:  append(json.RawMessage(nil), s.Request...),
			Response: append(json.RawMessage(nil), s.Response...),
		}
	}
	return out
}

// Routes lists the routes that have a declared schema.
func Routes() []string {
	return []string{RouteHealthz, RouteProviders, RouteVoices, RouteStatus, RouteTTS, RouteSchema}
}
