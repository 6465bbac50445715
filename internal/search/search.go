package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/accounts/internal/config"
	"github.com/Skotchmaster/accounts/internal/models"
)

var ErrDisabled = errors.New("search is not configured")

// UserIndex keeps a searchable copy of the user directory in Elasticsearch.
type UserIndex struct {
	es    *elasticsearch.Client
	index string
}

// NewClient returns ErrDisabled when no URL is configured.
func NewClient(ctx context.Context, cfg config.Search) (*UserIndex, error) {
	if cfg.URL == "" {
		return nil, ErrDisabled
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es: info: %s: %s", res.Status(), body)
	}

	return &UserIndex{es: client, index: cfg.Index}, nil
}

func (u *UserIndex) IndexUser(ctx context.Context, user *models.User) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(user); err != nil {
		return fmt.Errorf("es: encode user: %w", err)
	}

	res, err := u.es.Index(u.index, &buf,
		u.es.Index.WithContext(ctx),
		u.es.Index.WithDocumentID(user.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("es: index user: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es: index user: %s", res.Status())
	}
	return nil
}

func (u *UserIndex) DeleteUser(ctx context.Context, id string) error {
	res, err := u.es.Delete(u.index, id, u.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete user: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es: delete user: %s", res.Status())
	}
	return nil
}

func (u *UserIndex) SearchUsers(ctx context.Context, query string, from, size int) (int64, []models.User, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "email"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := u.es.Search(
		u.es.Search.WithContext(ctx),
		u.es.Search.WithIndex(u.index),
		u.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("es: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.User `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode response: %w", err)
	}

	users := make([]models.User, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		users[i] = hit.Source
	}
	return r.Hits.Total.Value, users, nil
}
