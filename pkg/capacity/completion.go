package capacity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// tokensPerWord approximates subword tokenization for backends that omit
// usage counts from their responses.
const tokensPerWord = 1.4

// CompletionBenchmark measures LLM backend throughput in generated tokens
// per second. Each round posts Concurrency completion requests in parallel;
// the published figure is total generated tokens across all rounds divided
// by total elapsed time.
type CompletionBenchmark struct {
	client      *http.Client
	url         string
	model       string
	prompt      string
	maxTokens   int
	runs        int
	concurrency int
	logger      *slog.Logger
}

// NewCompletionBenchmark creates a completion-tokens benchmark against the
// backend at backendURL.
func NewCompletionBenchmark(cfg config.CapacityConfig, backendURL string) (*CompletionBenchmark, error) {
	if backendURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	return &CompletionBenchmark{
		client:      &http.Client{},
		url:         strings.TrimSuffix(backendURL, "/") + cfg.Endpoint,
		model:       cfg.Model,
		prompt:      cfg.Prompt,
		maxTokens:   cfg.MaxTokens,
		runs:        cfg.Runs,
		concurrency: cfg.Concurrency,
		logger:      slog.Default().With("component", "capacity.completion"),
	}, nil
}

// Name implements Benchmark.
func (b *CompletionBenchmark) Name() string { return "completion-tokens" }

// Run implements Benchmark.
func (b *CompletionBenchmark) Run(ctx context.Context) (float64, error) {
	var totalTokens float64
	start := time.Now()

	for run := 0; run < b.runs; run++ {
		tokens, err := b.round(ctx)
		if err != nil {
			return 0, fmt.Errorf("benchmark round %d/%d: %w", run+1, b.runs, err)
		}
		totalTokens += tokens

		b.logger.Debug("benchmark round complete",
			"round", run+1,
			"runs", b.runs,
			"tokens", tokens,
		)
	}

	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0, fmt.Errorf("benchmark finished instantly; cannot derive throughput")
	}

	throughput := totalTokens / elapsed
	b.logger.Info("benchmark complete",
		"tokens", totalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"throughput", throughput,
	)
	return throughput, nil
}

// round issues the configured number of parallel completion requests and
// returns the tokens they generated.
func (b *CompletionBenchmark) round(ctx context.Context) (float64, error) {
	tokens := make([]float64, b.concurrency)
	errs := make([]error, b.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			tokens[slot], errs[slot] = b.complete(ctx)
		}(i)
	}
	wg.Wait()

	var total float64
	for i := 0; i < b.concurrency; i++ {
		if errs[i] != nil {
			return 0, errs[i]
		}
		total += tokens[i]
	}
	return total, nil
}

// completionRequest is the body posted to the backend.
type completionRequest struct {
	Model     string `json:"model,omitempty"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
	Stream    bool   `json:"stream"`
}

// completionResponse covers both completions-style and chat-style response
// shapes; only the fields the benchmark reads are declared.
type completionResponse struct {
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// complete sends one completion request and returns the tokens it produced.
func (b *CompletionBenchmark) complete(ctx context.Context) (float64, error) {
	body, err := json.Marshal(completionRequest{
		Model:     b.model,
		Prompt:    b.prompt,
		MaxTokens: b.maxTokens,
		Stream:    false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode benchmark request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create benchmark request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("benchmark request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to parse backend response: %w", err)
	}

	if parsed.Usage.CompletionTokens > 0 {
		return float64(parsed.Usage.CompletionTokens), nil
	}
	if len(parsed.Choices) == 0 {
		return 0, fmt.Errorf("backend response contained no choices")
	}

	text := parsed.Choices[0].Text
	if text == "" {
		text = parsed.Choices[0].Message.Content
	}
	return estimateTokens(text), nil
}

// estimateTokens approximates the token count of generated text for
// backends that report no usage. Never returns less than one token: an
// empty completion still cost a forward pass.
func estimateTokens(text string) float64 {
	tokens := float64(len(strings.Fields(text))) * tokensPerWord
	if tokens < 1 {
		return 1
	}
	return tokens
}
