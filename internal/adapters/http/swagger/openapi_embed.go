// Package swagger serves the OpenAPI description of the HTTP API.
package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI YAML specification.
//
//go:embed openapi.yaml
var OpenAPI []byte
