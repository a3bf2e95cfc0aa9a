package assets

import (
	"embed"
)

//go:embed tricks.yaml
var FS embed.FS

// TricksYAML returns the embedded default trick catalog.
func TricksYAML() ([]byte, error) {
	return FS.ReadFile("tricks.yaml")
}
