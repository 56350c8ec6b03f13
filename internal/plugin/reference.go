package plugin

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ReferenceTypeAzure is the only supported reference type.
const ReferenceTypeAzure = "azure"

// ErrConfiguration means the manifest references are misconfigured.
var ErrConfiguration = errors.New("configuration error")

var envPlaceholder = regexp.MustCompile(`\$(\w+)|\$\{([^}]+)\}`)

// Reference names one manifest object to fetch.
type Reference struct {
	Name   string          `yaml:"name"`
	Type   string          `yaml:"type"`
	Config ReferenceConfig `yaml:"config"`
}

// ReferenceConfig addresses the manifest object of a reference.
type ReferenceConfig struct {
	// AccountURL wins over AccountName when both are set.
	AccountURL    string `yaml:"account_url"`
	AccountName   string `yaml:"account_name"`
	ContainerName string `yaml:"container_name"`
	ObjectName    string `yaml:"object_name"`
}

// Endpoint returns the blob service URL of the reference.
func (c ReferenceConfig) Endpoint() string {
	if c.AccountURL != "" || c.AccountName == "" {
		return c.AccountURL
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net", c.AccountName)
}

type referenceFile struct {
	Manifests []Reference `yaml:"manifests"`
}

// LoadReferences reads manifest references from a YAML file.
// $VAR and ${VAR} placeholders are replaced using getenv before parsing; unset variables become empty.
func LoadReferences(path string, getenv func(string) string) ([]Reference, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file, %w", err)
	}

	return ParseReferences(b, getenv)
}

// ParseReferences parses manifest references from YAML content.
func ParseReferences(b []byte, getenv func(string) string) ([]Reference, error) {
	expanded := envPlaceholder.ReplaceAllStringFunc(string(b), func(m string) string {
		sub := envPlaceholder.FindStringSubmatch(m)
		if sub[1] != "" {
			return getenv(sub[1])
		}

		return getenv(sub[2])
	})

	var f referenceFile
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return nil, fmt.Errorf("parse config file, %w", err)
	}

	for i, r := range f.Manifests {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("manifest reference %d, %w", i, err)
		}
	}

	return f.Manifests, nil
}

func (r Reference) validate() error {
	if r.Name == "" {
		return fmt.Errorf("missing name, %w", ErrConfiguration)
	}

	if r.Type != ReferenceTypeAzure {
		return fmt.Errorf("the manifest reference provided for %s does not have a valid type <%s>, %w", r.Name, r.Type, ErrConfiguration)
	}

	return nil
}
