package search

import (
	"rental-marketplace/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "listings",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"address",
		"city",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"status",
		"city",
		"rent",
		"bedrooms",
		"area",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"rent",
		"area",
		"created_at",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexProperty indexes a single property listing
func (s *SearchClient) IndexProperty(property *models.Property) error {
	_, err := s.client.Index(s.index).AddDocuments([]models.Property{*property})
	return err
}

// IndexProperties indexes multiple property listings. Re-adding a document
// with the same primary key replaces it, so this doubles as the
// availability refresh after a lifecycle run releases properties.
func (s *SearchClient) IndexProperties(properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(properties)
	return err
}

// Search searches available listings
func (s *SearchClient) Search(query string, limit int64) ([]models.Property, error) {
	if limit <= 0 {
		limit = 20
	}
	result, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit:  limit,
		Filter: "status = available",
	})
	if err != nil {
		return nil, err
	}

	properties := make([]models.Property, 0, len(result.Hits))
	for _, hit := range result.Hits {
		doc, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		prop := models.Property{}
		if id, ok := doc["id"].(string); ok {
			prop.ID = id
		}
		if title, ok := doc["title"].(string); ok {
			prop.Title = title
		}
		if city, ok := doc["city"].(string); ok {
			prop.City = city
		}
		if status, ok := doc["status"].(string); ok {
			prop.Status = models.PropertyStatus(status)
		}
		if rent, ok := doc["rent"].(float64); ok {
			r := int(rent)
			prop.Rent = &r
		}
		properties = append(properties, prop)
	}
	return properties, nil
}
