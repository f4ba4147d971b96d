package schema

import _ "embed"

// ConfigV1Schema contains the JSON schema for pman configuration files.
//
//go:embed pman.v1.json
var ConfigV1Schema []byte
