// Package registry loads and validates the agency registry file.
package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/orbzodiac84/regpulse/internal/model"
)

// file is the on-disk shape of the registry.
type file struct {
	Agencies []model.Agency `yaml:"agencies"`
}

// Load reads the registry file at path and returns agencies keyed by code.
// Any invalid entry fails the whole load; a partially valid registry would
// silently drop sources.
func Load(path string) (map[string]model.Agency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "registry: parse %s", path)
	}
	if len(f.Agencies) == 0 {
		return nil, eris.Errorf("registry: %s defines no agencies", path)
	}

	agencies := make(map[string]model.Agency, len(f.Agencies))
	for _, a := range f.Agencies {
		if err := validate(a); err != nil {
			return nil, err
		}
		if _, dup := agencies[a.Code]; dup {
			return nil, eris.Errorf("registry: duplicate agency code %q", a.Code)
		}
		agencies[a.Code] = a
	}
	return agencies, nil
}

func validate(a model.Agency) error {
	if a.Code == "" {
		return eris.New("registry: agency with empty code")
	}
	if a.Name == "" {
		return eris.Errorf("registry: agency %s: name is required", a.Code)
	}
	if a.URL == "" {
		return eris.Errorf("registry: agency %s: url is required", a.Code)
	}

	switch a.Method {
	case model.MethodRSS:
		// RSS agencies need nothing beyond the feed URL.
	case model.MethodScraper:
		if a.Selectors.List == "" {
			return eris.Errorf("registry: agency %s: selectors.list is required for scraper method", a.Code)
		}
		if a.Selectors.Title == "" {
			return eris.Errorf("registry: agency %s: selectors.title is required for scraper method", a.Code)
		}
		switch a.Pagination {
		case model.PaginationNone, model.PaginationCurPage, model.PaginationPageIndex:
		default:
			return eris.Errorf("registry: agency %s: unknown pagination strategy %q", a.Code, a.Pagination)
		}
	default:
		return eris.Errorf("registry: agency %s: unknown collection method %q", a.Code, a.Method)
	}
	return nil
}
