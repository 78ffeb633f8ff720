// pkg/manifest/toolchain.go
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Toolchain pins the compiler toolchain for the environment. The pin lives
// in its own file next to the manifest so other tooling can read it without
// understanding the manifest format.
type Toolchain struct {
	Package string `yaml:"package"`
	Channel string `yaml:"channel"`
}

// LoadToolchain reads a toolchain pin file
func LoadToolchain(path string) (*Toolchain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading toolchain file: %w", err)
	}

	var tc Toolchain
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("parsing toolchain file: %w", err)
	}

	if tc.Package == "" {
		return nil, fmt.Errorf("toolchain file: package is required")
	}

	return &tc, nil
}
