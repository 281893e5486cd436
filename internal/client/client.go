// Package client wraps the OpenAI-compatible NRP endpoint. It provides the
// chat completion capability consumed by conversation agents and the model
// listing used by the front ends, merged with the embedded catalog.
package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"nrpchat/internal/catalog"
	"nrpchat/pkg/chattypes"
)

// Client talks to the hosted model endpoint.
type Client struct {
	api     openai.Client
	catalog *catalog.Catalog
	logger  *log.Logger
}

// New creates a client for the given endpoint. The API key and base URL
// come from configuration; the catalog supplies display metadata for
// ListModels.
func New(apiKey, baseURL string, cat *catalog.Catalog, logger *log.Logger) *Client {
	// The SDK resolves endpoint paths relative to the base URL, so the
	// /v1 segment is lost without a trailing slash.
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	api := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &Client{api: api, catalog: cat, logger: logger}
}

// ChatCompletion sends the full message history to a model and returns the
// reply text. Matches the agent.SendFunc signature, so a.Send can take
// c.ChatCompletion directly.
//
// Note: max_tokens is deliberately not set, per NRP guidance.
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []chattypes.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: convertMessages(messages),
	}

	c.logger.Debug("sending chat completion", "model", model, "message_count", len(messages))
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	content := completion.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response content")
	}

	c.logger.Debug("chat completion received", "model", model, "content_length", len(content))
	return content, nil
}

// ListModels fetches the live model listing and merges it with the static
// catalog, sorted by deployment tier then id.
func (c *Client) ListModels(ctx context.Context) ([]chattypes.ModelInfo, error) {
	page, err := c.api.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("model listing request failed: %w", err)
	}

	infos := make([]chattypes.ModelInfo, 0, len(page.Data))
	for _, model := range page.Data {
		info := chattypes.ModelInfo{ID: model.ID}
		if model.Created > 0 {
			info.Created = time.Unix(model.Created, 0)
		}
		if entry, ok := c.catalog.Lookup(model.ID); ok {
			info.ModelCatalogEntry = entry
		}
		infos = append(infos, info)
	}

	SortModels(infos)
	return infos, nil
}

// SortModels orders model infos by tier (main, eval, dep, unknown) and id.
func SortModels(infos []chattypes.ModelInfo) {
	sort.Slice(infos, func(i, j int) bool {
		ri, rj := catalog.StatusRank(infos[i].Status), catalog.StatusRank(infos[j].Status)
		if ri != rj {
			return ri < rj
		}
		return infos[i].ID < infos[j].ID
	})
}

// convertMessages maps conversation history to the SDK message params.
// Unknown roles are skipped.
func convertMessages(messages []chattypes.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chattypes.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case chattypes.RoleUser:
			params = append(params, openai.UserMessage(msg.Content))
		case chattypes.RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			continue
		}
	}
	return params
}
