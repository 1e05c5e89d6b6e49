// Package contracts embeds the OpenAPI document describing the /api/v1 surface.
package contracts

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Name is the public documentation name of the embedded contract.
const Name = "leadcapture"

//go:embed leadcapture.yaml
var leadcaptureYAML []byte

// GetSwagger parses the embedded contract. Each call returns a fresh document,
// so callers may mutate the result.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(leadcaptureYAML)
	if err != nil {
		return nil, fmt.Errorf("load %s contract: %w", Name, err)
	}
	return spec, nil
}
