package config

import "studyhall/internal/model"

const (
	defaultDBPath                 = "~/.local/share/studyhall/studyhall.db"
	defaultLLMBaseURL             = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel               = "gpt-4o-mini"
	defaultLLMTimeoutSeconds      = 60
	defaultLLMMaxOutputTokens     = 4096
	defaultChunkBudget            = 12000
	defaultDispatchTimeoutSeconds = 30
	defaultLogFormat              = "text"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DBPath: defaultDBPath,
		},
		LLM: LLM{
			BaseURL:         defaultLLMBaseURL,
			Model:           defaultLLMModel,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
			MaxOutputTokens: defaultLLMMaxOutputTokens,
		},
		Pipeline: Pipeline{
			ChunkBudget: defaultChunkBudget,
		},
		Gateway: Gateway{
			DispatchTimeoutSeconds: defaultDispatchTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		RateLimit: RateLimit{
			Endpoints: map[string]model.RateLimitPolicy{
				"upload":    {MaxRequests: 10, WindowSeconds: 60},
				"chat":      {MaxRequests: 20, WindowSeconds: 60},
				"summarize": {MaxRequests: 5, WindowSeconds: 300},
				"extract":   {MaxRequests: 5, WindowSeconds: 300},
				"raw_text":  {MaxRequests: 30, WindowSeconds: 60},
			},
		},
	}
}
