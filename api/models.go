package api

import (
	"context"
	"fmt"
	"strings"

	langbeta "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	langbetapb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/charmbracelet/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/prototext"
)

// ModelInfo contains information about a model
type ModelInfo struct {
	Name        string   // Full model name including prefix
	DisplayName string   // Display name
	Description string   // Model description
	Methods     []string // Supported generation methods
}

// ID returns the name without the "models/" prefix.
func (m ModelInfo) ID() string {
	return strings.TrimPrefix(m.Name, "models/")
}

// Supports reports whether the model lists method, e.g. "generateContent".
func (m ModelInfo) Supports(method string) bool {
	for _, have := range m.Methods {
		if have == method {
			return true
		}
	}
	return false
}

// StandardModels is used when the service returns an empty listing.
var StandardModels = []ModelInfo{
	{Name: "models/gemini-3-pro-preview", DisplayName: "Gemini 3 Pro Preview", Methods: []string{"generateContent"}},
	{Name: "models/gemini-3-flash-preview", DisplayName: "Gemini 3 Flash Preview", Methods: []string{"generateContent"}},
	{Name: "models/gemini-2.5-flash-preview-tts", DisplayName: "Gemini 2.5 Flash Preview TTS", Methods: []string{"generateContent"}},
	{Name: "models/gemini-2.0-flash-live-001", DisplayName: "Gemini 2.0 Flash Live", Methods: []string{"bidiGenerateContent"}},
}

// ListModels lists models over the v1beta gRPC ModelService, optionally
// filtered by a case-insensitive substring. extra options are appended to the
// client options; tests use them to inject a connection.
func (c *Client) ListModels(ctx context.Context, filter string, extra ...option.ClientOption) ([]ModelInfo, error) {
	key := ""
	if c.Keys != nil {
		key = c.Keys.APIKey()
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(key)}, extra...)
	modelClient, err := langbeta.NewModelClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create v1beta model client: %w", err)
	}
	defer modelClient.Close()

	it := modelClient.ListModels(ctx, &langbetapb.ListModelsRequest{})
	var models []ModelInfo
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating v1beta models: %w", err)
		}
		if log.GetLevel() <= log.DebugLevel {
			log.Debug("listed model", "proto", prototext.Format(m))
		}
		models = append(models, ModelInfo{
			Name:        m.GetName(),
			DisplayName: m.GetDisplayName(),
			Description: m.GetDescription(),
			Methods:     m.GetSupportedGenerationMethods(),
		})
	}
	if len(models) == 0 {
		log.Info("no models returned, using built-in list")
		models = StandardModels
	}
	return FilterModels(models, filter), nil
}

// FilterModels keeps models whose name or display name contains filter.
func FilterModels(models []ModelInfo, filter string) []ModelInfo {
	if filter == "" {
		return models
	}
	filter = strings.ToLower(filter)
	var out []ModelInfo
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), filter) || strings.Contains(strings.ToLower(m.DisplayName), filter) {
			out = append(out, m)
		}
	}
	return out
}
