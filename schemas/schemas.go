// Package schemas embeds the JSON Schemas shipped with burnish.
package schemas

import _ "embed"

// ConfigSchemaJSON is the JSON Schema for .burnish.yaml files.
//
//go:embed burnish.schema.json
var ConfigSchemaJSON string
