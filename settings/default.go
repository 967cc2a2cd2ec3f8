package settings

import (
	_ "embed"
)

//go:embed organizations.yml
var defaultSettings []byte

// LoadDefault parses the catalog shipped with the binary.
func LoadDefault() (*Catalog, error) {
	return Parse(defaultSettings)
}
