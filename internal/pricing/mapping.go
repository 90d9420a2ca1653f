package pricing

import (
	"errors"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// NameMapping pairs a POS item name with the name shown to editors.
type NameMapping struct {
	OriginalName string `yaml:"original_name" json:"originalName"`
	FriendlyName string `yaml:"friendly_name" json:"friendlyName"`
}

// LoadNameMappings decodes a YAML list of name mappings.
func LoadNameMappings(r io.Reader) ([]NameMapping, error) {
	var doc struct {
		Mappings []NameMapping `yaml:"mappings"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "pricing: decode name mappings")
	}
	return doc.Mappings, nil
}

// ApplyNameMappings sets FriendlyName on every item that has a mapping.
func (m *Model) ApplyNameMappings(mappings []NameMapping) {
	byName := make(map[string]string, len(mappings))
	for _, nm := range mappings {
		if nm.FriendlyName != "" {
			byName[nm.OriginalName] = nm.FriendlyName
		}
	}
	for i := range m.Items {
		if f, ok := byName[m.Items[i].Name]; ok {
			m.Items[i].FriendlyName = f
		}
	}
}

// UniqueNames returns the sorted distinct item names.
func (m *Model) UniqueNames() []string {
	names := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		names = append(names, it.Name)
	}
	sort.Strings(names)
	return names
}
