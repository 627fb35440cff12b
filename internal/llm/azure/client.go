package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"contract-analyzer/internal/llm"
	"contract-analyzer/internal/shared/metrics"
	"contract-analyzer/internal/shared/telemetry"
)

const (
	providerName = "azure-openai"

	AuthAPIKey = "api_key"
	AuthEntra  = "entra"

	defaultAuthorityHost = "https://login.microsoftonline.com"
	cognitiveScope       = "https://cognitiveservices.azure.com/.default"
	defaultTimeout       = 120 * time.Second
)

// Config carries the Azure OpenAI settings. Endpoint, Deployment, APIVersion and
// a credential are required.
type Config struct {
	Endpoint     string
	Deployment   string
	APIVersion   string
	AuthType     string
	APIKey       string
	TenantID     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// AuthorityHost overrides the Entra ID login host, mainly for tests.
	AuthorityHost string
}

// Client implements llm.Client using Azure OpenAI Chat Completions.
type Client struct {
	url        string
	deployment string
	apiKey     string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewClient validates cfg and constructs a client. It performs no network I/O.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	c := &Client{
		url:        completionsURL(cfg.Endpoint, cfg.Deployment, cfg.APIVersion),
		deployment: cfg.Deployment,
		httpClient: httpClient,
	}

	switch cfg.authType() {
	case AuthEntra:
		authority := strings.TrimRight(cfg.AuthorityHost, "/")
		if authority == "" {
			authority = defaultAuthorityHost
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     authority + "/" + url.PathEscape(cfg.TenantID) + "/oauth2/v2.0/token",
			Scopes:       []string{cognitiveScope},
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		c.tokens = cc.TokenSource(tokenCtx)
	default:
		c.apiKey = cfg.APIKey
	}

	return c, nil
}

func (cfg Config) authType() string {
	if strings.EqualFold(strings.TrimSpace(cfg.AuthType), AuthEntra) {
		return AuthEntra
	}
	return AuthAPIKey
}

func (cfg Config) validate() error {
	var missing []string
	if strings.TrimSpace(cfg.Endpoint) == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		missing = append(missing, "AZURE_OPENAI_DEPLOYMENT_NAME")
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		missing = append(missing, "AZURE_OPENAI_API_VERSION")
	}
	switch cfg.authType() {
	case AuthEntra:
		if strings.TrimSpace(cfg.TenantID) == "" {
			missing = append(missing, "AZURE_TENANT_ID")
		}
		if strings.TrimSpace(cfg.ClientID) == "" {
			missing = append(missing, "AZURE_CLIENT_ID")
		}
		if strings.TrimSpace(cfg.ClientSecret) == "" {
			missing = append(missing, "AZURE_CLIENT_SECRET")
		}
	default:
		if strings.TrimSpace(cfg.APIKey) == "" {
			missing = append(missing, "AZURE_OPENAI_API_KEY")
		}
	}
	if len(missing) > 0 {
		return llm.ConfigError(missing...)
	}

	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid AZURE_OPENAI_ENDPOINT %q", llm.ErrConfiguration, cfg.Endpoint)
	}
	return nil
}

func completionsURL(endpoint, deployment, apiVersion string) string {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	q := url.Values{}
	q.Set("api-version", strings.TrimSpace(apiVersion))
	return base + "/openai/deployments/" + url.PathEscape(strings.TrimSpace(deployment)) + "/chat/completions?" + q.Encode()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends the system and user messages with temperature 0.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	out, err := c.generate(ctx, system, user)
	if err != nil {
		metrics.IncLLMRequest("error")
		telemetry.Error("llm.error", map[string]any{
			"provider":    providerName,
			"deployment":  c.deployment,
			"error":       err,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return "", err
	}
	metrics.IncLLMRequest("ok")
	return out, nil
}

func (c *Client) generate(ctx context.Context, system, user string) (string, error) {
	temp := float32(0)
	reqBody := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temp,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", providerErr(0, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", providerErr(0, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", providerErr(0, "request timeout", err)
		}
		return "", providerErr(0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", providerErr(resp.StatusCode, "read response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", providerErr(resp.StatusCode, strings.TrimSpace(string(body)), nil)
		}
		return "", providerErr(resp.StatusCode, "response parse", err)
	}
	if parsed.Error != nil {
		reason := parsed.Error.Message
		if parsed.Error.Code != nil {
			reason = fmt.Sprintf("%s (%v)", reason, parsed.Error.Code)
		}
		return "", providerErr(resp.StatusCode, reason, nil)
	}
	if resp.StatusCode >= 400 {
		return "", providerErr(resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}
	if len(parsed.Choices) == 0 {
		return "", providerErr(resp.StatusCode, "response missing choices", nil)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		reason := "response empty content"
		if fr := parsed.Choices[0].FinishReason; fr != "" {
			reason += " (finish_reason=" + fr + ")"
		}
		return "", providerErr(resp.StatusCode, reason, nil)
	}

	logUsage(c.deployment, parsed, time.Since(start))
	return content, nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		req.Header.Set("api-key", c.apiKey)
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return providerErr(0, "acquire entra token", err)
	}
	tok.SetAuthHeader(req)
	return nil
}

func providerErr(status int, reason string, err error) error {
	return &llm.ProviderError{Provider: providerName, StatusCode: status, Reason: reason, Err: err}
}

func logUsage(deployment string, resp chatResponse, elapsed time.Duration) {
	fields := map[string]any{
		"provider":    providerName,
		"deployment":  deployment,
		"model":       resp.Model,
		"duration_ms": elapsed.Milliseconds(),
	}
	if resp.Usage != nil {
		fields["prompt_tokens"] = resp.Usage.PromptTokens
		fields["completion_tokens"] = resp.Usage.CompletionTokens
		fields["total_tokens"] = resp.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Client = (*Client)(nil)
