package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"gopkg.in/yaml.v3"
)

// document is the YAML layout of a catalog file. Entries replace the
// matching default entry; rules fields left out keep their default value.
type document struct {
	Units        map[string]UnitStats        `yaml:"units"`
	Technologies map[string]TechnologyEffect `yaml:"technologies"`
	Rules        Rules                       `yaml:"rules"`
}

// Load reads a YAML catalog layered over Default and validates the result.
func Load(r io.Reader) (*Catalog, error) {
	doc := document{Rules: DefaultRules()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrap(apperrors.CodeCatalogInvalid, "decode catalog", err)
	}

	units := defaultUnits()
	for name, stats := range doc.Units {
		kind, err := galaxy.ParseUnitKind(name)
		if err != nil {
			return nil, apperrors.WrapWithMetadata(apperrors.CodeCatalogUnknownKind,
				fmt.Sprintf("catalog names unknown unit kind %q", name),
				map[string]string{apperrors.MetaDetail: name}, err)
		}
		units[kind] = stats
	}
	techs := defaultTechnologies()
	for name, effect := range doc.Technologies {
		techs[galaxy.Technology(name)] = effect
	}

	c := New(units, techs, doc.Rules)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile loads a catalog from path. An empty path returns Default.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}
