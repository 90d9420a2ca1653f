package profile

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/field"
)

// AccessorSpec is the YAML form of a field accessor. Sources accepts either
// a single column name or a list.
type AccessorSpec struct {
	Sources SourceList     `yaml:"sources"`
	Type    field.DataType `yaml:"type"`
	Default *yaml.Node     `yaml:"default,omitempty"`
}

// SourceList is one or more candidate column names.
type SourceList []string

// UnmarshalYAML accepts a scalar or a sequence.
func (s *SourceList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = SourceList{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return eris.Wrap(err, "profile: decode sources")
	}
	*s = list
	return nil
}

// Accessor builds the field.Accessor a describes.
func (a AccessorSpec) Accessor() (field.Accessor, error) {
	switch a.Type {
	case field.TypeNone, field.TypeString, field.TypeNumber, field.TypeBoolean, field.TypeDate:
	default:
		return field.Accessor{}, eris.Errorf("profile: unknown data type %q", a.Type)
	}
	if len(a.Sources) == 0 {
		return field.Accessor{}, eris.New("profile: accessor has no sources")
	}
	acc := field.From(a.Sources...).As(a.Type)
	if a.Default != nil {
		var def any
		if err := a.Default.Decode(&def); err != nil {
			return field.Accessor{}, eris.Wrap(err, "profile: decode default")
		}
		if i, ok := def.(int); ok {
			def = float64(i)
		}
		acc = acc.Or(def)
	}
	return acc, nil
}

// Spec is the YAML form of a processing profile.
type Spec struct {
	FilePrefix      string                  `yaml:"file_prefix"`
	RollUp          bool                    `yaml:"roll_up"`
	Location        *AccessorSpec           `yaml:"location,omitempty"`
	Discount        *AccessorSpec           `yaml:"discount,omitempty"`
	Employee        *AccessorSpec           `yaml:"employee,omitempty"`
	TransactionDate *AccessorSpec           `yaml:"transaction_date,omitempty"`
	Usage           *AccessorSpec           `yaml:"usage,omitempty"`
	GuestName       *AccessorSpec           `yaml:"guest_name,omitempty"`
	Fields          map[string]AccessorSpec `yaml:"fields"`
}

func optional(spec *AccessorSpec) (field.Optional, error) {
	if spec == nil {
		return field.None(), nil
	}
	acc, err := spec.Accessor()
	if err != nil {
		return field.None(), err
	}
	return field.Some(acc), nil
}

// Build converts a spec into a Config.
func (s Spec) Build(name string) (*Config, error) {
	cfg := &Config{
		Name:       name,
		FilePrefix: s.FilePrefix,
		RollUp:     s.RollUp,
		Fields:     make(map[string]field.Accessor, len(s.Fields)),
	}
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = name
	}

	roles := []struct {
		spec *AccessorSpec
		dst  *field.Optional
		role string
	}{
		{s.Location, &cfg.Location, "location"},
		{s.Discount, &cfg.Discount, "discount"},
		{s.Employee, &cfg.Employee, "employee"},
		{s.TransactionDate, &cfg.TransactionDate, "transaction_date"},
		{s.Usage, &cfg.Usage, "usage"},
		{s.GuestName, &cfg.GuestName, "guest_name"},
	}
	for _, r := range roles {
		opt, err := optional(r.spec)
		if err != nil {
			return nil, eris.Wrapf(err, "profile %s: %s", name, r.role)
		}
		*r.dst = opt
	}

	for out, spec := range s.Fields {
		acc, err := spec.Accessor()
		if err != nil {
			return nil, eris.Wrapf(err, "profile %s: field %s", name, out)
		}
		cfg.Fields[out] = acc
	}
	return cfg, nil
}

// Registry holds the processing profiles available to a run.
type Registry struct {
	profiles map[string]*Config
}

// NewRegistry returns a registry seeded with the built-in profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: Builtins()}
}

// Get returns the named profile.
func (r *Registry) Get(name string) (*Config, bool) {
	c, ok := r.profiles[name]
	return c, ok
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Add registers cfg, replacing any profile of the same name.
func (r *Registry) Add(cfg *Config) {
	r.profiles[cfg.Name] = cfg
}

// Parse decodes a profiles document of the form
//
//	profiles:
//	  <name>: <Spec>
func Parse(data []byte) ([]*Config, error) {
	var wrapper struct {
		Profiles map[string]Spec `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "profile: parse")
	}

	names := make([]string, 0, len(wrapper.Profiles))
	for name := range wrapper.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Config, 0, len(names))
	for _, name := range names {
		cfg, err := wrapper.Profiles[name].Build(name)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// LoadFile reads a profiles YAML file and registers every profile in it.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "profile: read %s", path)
	}
	cfgs, err := Parse(data)
	if err != nil {
		return err
	}
	for _, c := range cfgs {
		r.Add(c)
	}
	return nil
}
