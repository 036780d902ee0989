package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"invoicehub/internal/models"
	"invoicehub/pkg/config"
)

// Agent answers invoice questions by running a Gemini function-calling
// loop over the fixed tool registry.
type Agent struct {
	client       *genai.Client
	model        string
	maxToolTurns int
	registry     *Registry
	logger       *zap.Logger
}

func New(ctx context.Context, cfg *config.GeminiConfig, querier InvoiceQuerier, logger *zap.Logger) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	maxToolTurns := cfg.MaxToolTurns
	if maxToolTurns <= 0 {
		maxToolTurns = 5
	}

	return &Agent{
		client:       client,
		model:        cfg.Model,
		maxToolTurns: maxToolTurns,
		registry:     NewRegistry(querier, logger),
		logger:       logger,
	}, nil
}

// Ask sends the conversation history plus the new user message and runs
// tool calls until the model produces a plain-text reply.
func (a *Agent) Ask(ctx context.Context, history []*models.ChatMessage, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == models.ChatRoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
		Tools: []*genai.Tool{
			{FunctionDeclarations: a.registry.Declarations()},
		},
	}

	for turn := 0; turn <= a.maxToolTurns; turn++ {
		resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, cfg)
		if err != nil {
			return "", fmt.Errorf("generation failed: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("no response from model")
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			reply := strings.TrimSpace(resp.Text())
			if reply == "" {
				return "", fmt.Errorf("model returned an empty reply")
			}
			return reply, nil
		}

		contents = append(contents, resp.Candidates[0].Content)
		for _, call := range calls {
			a.logger.Info("Dispatching tool call",
				zap.String("tool", call.Name),
				zap.Int("turn", turn),
			)
			result := a.registry.Dispatch(ctx, call.Name, call.Args)
			contents = append(contents, genai.NewContentFromFunctionResponse(call.Name, result, genai.RoleUser))
		}
	}

	return "", fmt.Errorf("tool loop did not converge after %d turns", a.maxToolTurns)
}
