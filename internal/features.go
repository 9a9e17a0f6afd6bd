package internal

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"helpdesk-api/internal/auth"
)

//go:embed features.yaml
var featuresYAML []byte

// Feature is one page of the public product catalog
type Feature struct {
	Slug       string   `yaml:"slug" json:"slug"`
	Title      string   `yaml:"title" json:"title"`
	Subtitle   string   `yaml:"subtitle" json:"subtitle"`
	Highlights []string `yaml:"highlights" json:"highlights"`
	UseCases   []string `yaml:"use_cases" json:"use_cases,omitempty"`
}

var catalog = mustLoadCatalog(featuresYAML)

func mustLoadCatalog(data []byte) []Feature {
	var doc struct {
		Features []Feature `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		panic(fmt.Sprintf("features catalog: %v", err))
	}
	return doc.Features
}

func (s *Server) listFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog)
}

func (s *Server) getFeature(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	for _, f := range catalog {
		if f.Slug == slug {
			writeJSON(w, http.StatusOK, f)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, auth.ErrorResponse{Error: "no feature " + slug, Code: "NOT_FOUND"})
}
