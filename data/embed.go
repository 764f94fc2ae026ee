// Package data embeds static assets compiled into the server binary.
package data

import (
	_ "embed"
)

// ApplicationSchema is the JSON schema for create-application payloads
//
//go:embed schemas/application.json
var ApplicationSchema string
