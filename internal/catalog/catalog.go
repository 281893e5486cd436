// Package catalog exposes the static model metadata embedded in the binary.
// The live /v1/models listing only carries ids and creation times; the
// catalog supplies the human-facing fields (tier, title, size, context).
package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"nrpchat/internal/data/embedded"
	"nrpchat/pkg/chattypes"
)

type catalogFile struct {
	Models []chattypes.ModelCatalogEntry `yaml:"models"`
}

// Catalog holds the parsed model metadata, indexed by model id.
type Catalog struct {
	entries []chattypes.ModelCatalogEntry
	byID    map[string]chattypes.ModelCatalogEntry
}

// Load parses the embedded catalog. It fails only if the embedded YAML is
// malformed, which would be a build defect rather than a runtime condition.
func Load() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(embedded.ModelCatalogData, &file); err != nil {
		return nil, fmt.Errorf("failed to parse embedded model catalog: %w", err)
	}

	byID := make(map[string]chattypes.ModelCatalogEntry, len(file.Models))
	for _, entry := range file.Models {
		byID[entry.ID] = entry
	}

	return &Catalog{entries: file.Models, byID: byID}, nil
}

// Lookup returns the catalog entry for a model id, if the catalog knows it.
func (c *Catalog) Lookup(id string) (chattypes.ModelCatalogEntry, bool) {
	entry, ok := c.byID[id]
	return entry, ok
}

// All returns the catalog entries in file order.
func (c *Catalog) All() []chattypes.ModelCatalogEntry {
	return c.entries
}

// StatusRank orders model tiers for display: main models first, then eval,
// then deprecated, then anything the catalog does not classify.
func StatusRank(status string) int {
	switch status {
	case chattypes.ModelStatusMain:
		return 0
	case chattypes.ModelStatusEval:
		return 1
	case chattypes.ModelStatusDeprecated:
		return 2
	default:
		return 3
	}
}
