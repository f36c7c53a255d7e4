// Package plugin builds the static discovery documents served to calling agents:
// the AI plugin manifest and the OpenAPI description of the search tool.
package plugin

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Auth describes how an agent obtains credentials.
type Auth struct {
	Type      string `json:"type"`
	ClientURL string `json:"client_url"`
	Scope     string `json:"scope"`
}

// API points at the OpenAPI document.
type API struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Manifest is the ai-plugin.json descriptor.
type Manifest struct {
	SchemaVersion       string `json:"schema_version"`
	NameForHuman        string `json:"name_for_human"`
	NameForModel        string `json:"name_for_model"`
	DescriptionForHuman string `json:"description_for_human"`
	DescriptionForModel string `json:"description_for_model"`
	Auth                Auth   `json:"auth"`
	API                 API    `json:"api"`
	LogoURL             string `json:"logo_url"`
	ContactEmail        string `json:"contact_email"`
	LegalInfoURL        string `json:"legal_info_url"`
}

// NewManifest returns the manifest for a server reachable at baseURL.
func NewManifest(baseURL string, scopes []string) Manifest {
	return Manifest{
		SchemaVersion:       "v1",
		NameForHuman:        "Spotify Search",
		NameForModel:        "spotify_search",
		DescriptionForHuman: "Search for tracks on Spotify",
		DescriptionForModel: "Plugin for searching tracks on Spotify. Returns top 5 matching tracks.",
		Auth: Auth{
			Type:      "oauth",
			ClientURL: "/login",
			Scope:     strings.Join(scopes, " "),
		},
		API: API{
			Type: "openapi",
			URL:  baseURL + "/openapi.json",
		},
		LogoURL:      "https://www.spotify.com/favicon.ico",
		ContactEmail: "support@example.com",
		LegalInfoURL: "http://example.com/legal",
	}
}

// Documents holds both discovery documents, encoded once.
type Documents struct {
	Manifest []byte
	OpenAPI  []byte
}

// NewDocuments encodes the manifest and OpenAPI document for baseURL.
func NewDocuments(baseURL string, scopes []string) (*Documents, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	manifest, err := json.Marshal(NewManifest(baseURL, scopes))
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	openapi, err := json.Marshal(NewOpenAPI(baseURL))
	if err != nil {
		return nil, fmt.Errorf("encoding openapi document: %w", err)
	}

	return &Documents{Manifest: manifest, OpenAPI: openapi}, nil
}
