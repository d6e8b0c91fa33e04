// Package manifest holds the provider manifest schema: the static metadata a
// provider package ships in its provider.yaml (connection types, hooks,
// sensors, executors and configuration option tables).
package manifest

import (
	"sort"
)

// Provider states.
const (
	StateReady     = "ready"
	StateSuspended = "suspended"
	StateRemoved   = "removed"
)

// Config option types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeFloat   = "float"
)

// RedactedValue replaces the default of sensitive options in redacted views.
const RedactedValue = "********"

// Provider is a single provider manifest.
type Provider struct {
	PackageName     string                   `yaml:"package-name" json:"package_name" validate:"required,package_name"`
	Name            string                   `yaml:"name" json:"name" validate:"required"`
	Description     string                   `yaml:"description,omitempty" json:"description,omitempty"`
	State           string                   `yaml:"state,omitempty" json:"state" validate:"omitempty,oneof=ready suspended removed"`
	SourceDateEpoch int64                    `yaml:"source-date-epoch,omitempty" json:"source_date_epoch,omitempty"`
	Versions        []string                 `yaml:"versions" json:"versions" validate:"required,min=1,dive,required"`
	Dependencies    []string                 `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Integrations    []Integration            `yaml:"integrations,omitempty" json:"integrations,omitempty" validate:"dive"`
	Operators       []ModuleGroup            `yaml:"operators,omitempty" json:"operators,omitempty" validate:"dive"`
	Sensors         []ModuleGroup            `yaml:"sensors,omitempty" json:"sensors,omitempty" validate:"dive"`
	Hooks           []ModuleGroup            `yaml:"hooks,omitempty" json:"hooks,omitempty" validate:"dive"`
	ConnectionTypes []ConnectionType         `yaml:"connection-types,omitempty" json:"connection_types,omitempty" validate:"dive"`
	Executors       []string                 `yaml:"executors,omitempty" json:"executors,omitempty" validate:"dive,required"`
	Notifications   []string                 `yaml:"notifications,omitempty" json:"notifications,omitempty"`
	SecretsBackends []string                 `yaml:"secrets-backends,omitempty" json:"secrets_backends,omitempty"`
	Config          map[string]ConfigSection `yaml:"config,omitempty" json:"config,omitempty" validate:"dive"`
}

// Integration describes the external system a provider integrates with.
type Integration struct {
	IntegrationName string   `yaml:"integration-name" json:"integration_name" validate:"required"`
	ExternalDocURL  string   `yaml:"external-doc-url,omitempty" json:"external_doc_url,omitempty" validate:"omitempty,url"`
	Logo            string   `yaml:"logo,omitempty" json:"logo,omitempty"`
	Tags            []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// ModuleGroup lists the modules implementing operators, sensors or hooks
// for one integration.
type ModuleGroup struct {
	IntegrationName string   `yaml:"integration-name" json:"integration_name" validate:"required"`
	PythonModules   []string `yaml:"python-modules" json:"python_modules" validate:"required,min=1,dive,required"`
}

// ConnectionType maps a connection type to the hook class that serves it.
type ConnectionType struct {
	HookClassName  string `yaml:"hook-class-name" json:"hook_class_name" validate:"required"`
	ConnectionType string `yaml:"connection-type" json:"connection_type" validate:"required"`
}

// ConfigSection is one section of a provider's configuration table.
type ConfigSection struct {
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Options     map[string]ConfigOption `yaml:"options" json:"options" validate:"dive"`
}

// ConfigOption is a single configuration option. Default and Example are
// pointers because manifests use ~ for "no value".
type ConfigOption struct {
	Description  string  `yaml:"description,omitempty" json:"description,omitempty"`
	VersionAdded *string `yaml:"version_added" json:"version_added"`
	Type         string  `yaml:"type" json:"type" validate:"required"`
	Example      *string `yaml:"example" json:"example"`
	Default      *string `yaml:"default" json:"default"`
	Sensitive    bool    `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
}

// LatestVersion returns the newest released version, which manifests list first.
func (p *Provider) LatestVersion() string {
	if len(p.Versions) == 0 {
		return ""
	}
	return p.Versions[0]
}

// IsActive reports whether the provider is neither suspended nor removed.
func (p *Provider) IsActive() bool {
	return p.State == "" || p.State == StateReady
}

// ConfigDefaults returns the non-null defaults per section and option.
func (p *Provider) ConfigDefaults() map[string]map[string]string {
	return p.configValues(false)
}

// RedactedConfig is ConfigDefaults with sensitive defaults masked.
func (p *Provider) RedactedConfig() map[string]map[string]string {
	return p.configValues(true)
}

func (p *Provider) configValues(redact bool) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for section, cs := range p.Config {
		for name, opt := range cs.Options {
			if opt.Default == nil {
				continue
			}
			if out[section] == nil {
				out[section] = make(map[string]string)
			}
			value := *opt.Default
			if redact && opt.Sensitive {
				value = RedactedValue
			}
			out[section][name] = value
		}
	}
	return out
}

// IntegrationNames returns the declared integration names, sorted.
func (p *Provider) IntegrationNames() []string {
	names := make([]string, 0, len(p.Integrations))
	for _, i := range p.Integrations {
		names = append(names, i.IntegrationName)
	}
	sort.Strings(names)
	return names
}

// Redacted returns a copy of p whose sensitive config defaults are masked.
// The copy shares everything but the config table with p.
func (p *Provider) Redacted() *Provider {
	out := *p
	if p.Config == nil {
		return &out
	}
	out.Config = make(map[string]ConfigSection, len(p.Config))
	for section, cs := range p.Config {
		options := make(map[string]ConfigOption, len(cs.Options))
		for name, opt := range cs.Options {
			options[name] = opt.Redacted()
		}
		out.Config[section] = ConfigSection{Description: cs.Description, Options: options}
	}
	return &out
}

// Redacted masks the default of a sensitive option.
func (o ConfigOption) Redacted() ConfigOption {
	if o.Sensitive && o.Default != nil {
		masked := RedactedValue
		o.Default = &masked
	}
	return o
}
