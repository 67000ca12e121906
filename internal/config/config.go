package config

import "time"

// Config is the root configuration for accord.
type Config struct {
	Gateway  GatewayConfig  `json:"gateway"`
	Models   ModelsConfig   `json:"models"`
	Events   EventsConfig   `json:"events"`
	Dialogue DialogueConfig `json:"dialogue"`
	Capture  CaptureConfig  `json:"capture"`
}

// GatewayConfig holds the HTTP/WebSocket server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string         `json:"driver"` // "anthropic", "openai", "mistral", "ollama"
	Model     string         `json:"model"`
	BaseURL   string         `json:"base_url,omitempty"`
	Auth      AuthConfig     `json:"auth"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Timeout   Duration       `json:"timeout,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // Direct API key, ${VAR}, or ${{ .Env.VAR }} template
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// DialogueConfig holds orchestrator settings.
type DialogueConfig struct {
	// ModerationModel / AuthoringModel name providers from ModelsConfig;
	// empty means the default provider.
	ModerationModel string `json:"moderation_model,omitempty"`
	AuthoringModel  string `json:"authoring_model,omitempty"`
	// GatewayTimeout bounds each moderation/authoring call.
	GatewayTimeout Duration `json:"gateway_timeout,omitempty"`
	// TerminalDelay is how long the UI holds the final view before the
	// summary screen. Passed through to clients in the snapshot.
	TerminalDelay Duration `json:"terminal_delay,omitempty"`
}

// CaptureConfig holds speech capture settings.
type CaptureConfig struct {
	Provider string         `json:"provider,omitempty"` // "deepgram" or "" (none)
	Deepgram DeepgramConfig `json:"deepgram,omitempty"`
}

// DeepgramConfig configures the Deepgram streaming transcription provider.
type DeepgramConfig struct {
	APIKey      string `json:"api_key,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	Model       string `json:"model,omitempty"`
	Language    string `json:"language,omitempty"`
	SmartFormat bool   `json:"smart_format,omitempty"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
