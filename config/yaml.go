package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

var ErrEmptyConfig = errors.New("config is empty")

// parseYaml decodes a single document and rejects unknown fields.
func parseYaml(out interface{}, blob []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(blob))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyConfig
		}
		return fmt.Errorf("can't parse yaml: %w", err)
	}
	return nil
}
