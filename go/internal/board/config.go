package board

import (
	"fmt"

	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"gopkg.in/yaml.v3"
)

type layoutsFile struct {
	Boards []models.BoardLayout `yaml:"boards"`
}

// LoadLayouts parses the boards section of a catalog file.
func LoadLayouts(data []byte) (*Registry, error) {
	var f layoutsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse boards: %v", gameerr.ErrConfiguration, err)
	}
	if len(f.Boards) == 0 {
		return nil, fmt.Errorf("%w: catalog defines no boards", gameerr.ErrConfiguration)
	}
	return NewRegistry(f.Boards)
}
