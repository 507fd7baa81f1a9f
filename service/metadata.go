package service

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// PackageMetadata mirrors the optional abel.json sitting alongside
// main.lua inside an archive source.
type PackageMetadata struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	Version     string `json:"version" mapstructure:"version"`
}

// DecodeMetadata parses abel.json content. A missing or empty body yields a
// zero-value PackageMetadata rather than an error, since the file is
// optional.
func DecodeMetadata(body []byte) (PackageMetadata, error) {
	var meta PackageMetadata

	if len(body) == 0 {
		return meta, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return meta, ErrorMetadataDecode.Error(err)
	}

	if err := mapstructure.Decode(raw, &meta); err != nil {
		return meta, ErrorMetadataDecode.Error(err)
	}

	return meta, nil
}
