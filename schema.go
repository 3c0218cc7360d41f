package pewsync

import (
	"context"

	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/errors"
)

// SchemaField is one field of a Webflow collection.
type SchemaField struct {
	Slug        string `json:"slug" yaml:"slug"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Type        string `json:"type" yaml:"type"`
	Required    bool   `json:"required" yaml:"required"`
}

// Schema describes a Webflow collection.
type Schema struct {
	CollectionID string        `json:"collection_id" yaml:"collection_id"`
	DisplayName  string        `json:"display_name" yaml:"display_name"`
	Fields       []SchemaField `json:"fields" yaml:"fields"`
}

// Slugs returns the field slugs in collection order.
func (s *Schema) Slugs() []string {
	slugs := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		slugs[i] = f.Slug
	}
	return slugs
}

// Schema fetches the live fields of a Webflow collection.
func (s *syncer) Schema(ctx context.Context, collectionID string) (*Schema, error) {
	if s.config.webflowToken == "" {
		return nil, errors.NewConfigError("schema", "webflow credentials are not configured", nil)
	}
	if collectionID == "" {
		return nil, errors.NewValidationError("collection_id", collectionID, "collection id is required")
	}

	opts := []webflow.Option{webflow.WithHTTPClient(s.config.httpClient)}
	if s.config.webflowBaseURL != "" {
		opts = append(opts, webflow.WithBaseURL(s.config.webflowBaseURL))
	}
	info, err := webflow.New(s.config.webflowToken, opts...).CollectionInfo(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	schema := &Schema{CollectionID: info.ID, DisplayName: info.DisplayName}
	if schema.CollectionID == "" {
		schema.CollectionID = collectionID
	}
	for _, f := range info.Fields {
		schema.Fields = append(schema.Fields, SchemaField{
			Slug:        f.Slug,
			DisplayName: f.DisplayName,
			Type:        f.Type,
			Required:    f.IsRequired,
		})
	}
	return schema, nil
}
