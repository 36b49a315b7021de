package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/utils"
)

// ============================================================================
// CLAUDE CLIENT
// ============================================================================

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"

var ErrAINotConfigured = errors.New("ANTHROPIC_API_KEY not set")

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type ClaudeClient struct {
	apiKey     string
	model      string
	maxTokens  int
	endpoint   string
	httpClient *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  1000,
		endpoint:   anthropicMessagesURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrAINotConfigured
	}

	jsonData, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var out claudeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", errors.New("empty response from Claude")
	}
	utils.SafeDebug("[Claude AI] model=%s tokens in=%d out=%d", out.Model, out.Usage.InputTokens, out.Usage.OutputTokens)
	return out.Content[0].Text, nil
}

// ============================================================================
// FINANCIAL INSIGHT
// ============================================================================

type InsightService struct {
	ledger LedgerSource
	ai     Completer
}

func NewInsightService(ledger LedgerSource, ai Completer) *InsightService {
	return &InsightService{ledger: ledger, ai: ai}
}

// FinancialInsight pairs the computed figures with the model's commentary.
type FinancialInsight struct {
	Metrics *Metrics `json:"metrics"`
	Insight string   `json:"insight"`
}

const insightSystemPrompt = `You are a financial analyst for a small agency.
Comment briefly on the figures you are given: trend, risk, one concrete action.
Never invent numbers that are not in the input.`

// Financial computes the overview for w and asks the model to comment on it.
// Only aggregated figures leave the process.
func (s *InsightService) Financial(ctx context.Context, userID string, w Window) (*FinancialInsight, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	m, err := overview(ctx, s.ledger, LedgerFilter{Window: w})
	if err != nil {
		return nil, err
	}

	start, end := w.Label()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Period: %s to %s\n", orOpen(start), orOpen(end))
	fmt.Fprintf(&sb, "Total revenue: %s\n", money(m.TotalRevenue))
	fmt.Fprintf(&sb, "Total expenses: %s\n", money(m.TotalExpenses))
	fmt.Fprintf(&sb, "Net profit: %s\n", money(m.NetProfit))
	fmt.Fprintf(&sb, "Profit margin: %s%%\n", money(m.ProfitMargin))

	text, err := s.ai.Complete(ctx, insightSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}
	utils.LogAIAnalysis("financial insight", "overview", len(m.Warnings))
	return &FinancialInsight{Metrics: m, Insight: strings.TrimSpace(text)}, nil
}
