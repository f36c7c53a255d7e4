package plugin

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// SearchPath is the route of the search tool.
const SearchPath = "/tools/search"

// NewOpenAPI returns the OpenAPI 3.0 document describing the searchTracks operation.
func NewOpenAPI(baseURL string) *openapi3.T {
	query := openapi3.NewStringSchema()
	query.Description = "Search query for tracks"

	request := openapi3.NewObjectSchema().WithProperty("query", query)
	request.Required = []string{"query"}

	track := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("artist", openapi3.NewStringSchema()).
		WithProperty("album", openapi3.NewStringSchema()).
		WithProperty("url", openapi3.NewStringSchema())

	response := openapi3.NewObjectSchema().
		WithProperty("tracks", openapi3.NewArraySchema().WithItems(track))

	op := openapi3.NewOperation()
	op.OperationID = "searchTracks"
	op.Summary = "Search for tracks on Spotify"
	op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(request),
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Successful response").
				WithJSONSchema(response),
		}),
	)

	return &openapi3.T{
		OpenAPI: "3.0.1",
		Info: &openapi3.Info{
			Title:   "Spotify Search API",
			Version: "v1",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath(SearchPath, &openapi3.PathItem{Post: op}),
		),
	}
}
