package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeCompleter struct {
	system, prompt string
	reply          string
	err            error
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

func TestFinancialInsightSendsAggregatesOnly(t *testing.T) {
	ai := &fakeCompleter{reply: "  Margins are healthy.  "}
	svc := NewInsightService(fixtureSource(), ai)
	w, _ := ParseWindow("2024-03-01", "2024-03-10")

	got, err := svc.Financial(context.Background(), u1, w)
	if err != nil {
		t.Fatal(err)
	}
	if got.Insight != "Margins are healthy." {
		t.Errorf("insight = %q", got.Insight)
	}
	if !got.Metrics.NetProfit.Equal(dec("470")) {
		t.Errorf("net profit = %s", got.Metrics.NetProfit)
	}
	if !strings.Contains(ai.prompt, "Net profit: 470.00") || !strings.Contains(ai.prompt, "Profit margin: 78.33%") {
		t.Errorf("prompt = %q", ai.prompt)
	}
	for _, leak := range []string{"Acme", "Beta", clientA} {
		if strings.Contains(ai.prompt, leak) {
			t.Errorf("prompt leaks %q", leak)
		}
	}
}

func TestFinancialInsightPropagatesAIErrors(t *testing.T) {
	svc := NewInsightService(fixtureSource(), &fakeCompleter{err: ErrAINotConfigured})
	if _, err := svc.Financial(context.Background(), u1, Window{}); !errors.Is(err, ErrAINotConfigured) {
		t.Errorf("err = %v", err)
	}
	if _, err := svc.Financial(context.Background(), "", Window{}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous: %v", err)
	}
}

func TestClaudeClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 1 || req.System != "sys" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello"}],"model":"m"}`))
	}))
	defer srv.Close()

	c := NewClaudeClient("test-key", "")
	c.endpoint = srv.URL
	got, err := c.Complete(context.Background(), "sys", "prompt")
	if err != nil || got != "hello" {
		t.Errorf("Complete = %q, %v", got, err)
	}

	c.apiKey = "wrong"
	if _, err := c.Complete(context.Background(), "sys", "prompt"); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("bad key err = %v", err)
	}
}

func TestClaudeClientWithoutKey(t *testing.T) {
	if _, err := NewClaudeClient("", "").Complete(context.Background(), "", "x"); !errors.Is(err, ErrAINotConfigured) {
		t.Errorf("err = %v", err)
	}
}
