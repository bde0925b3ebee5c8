package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. The LLM API key is not
// required here: commands that never reach the model run without one, and
// the client reports a configuration error when inference is attempted.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateRateLimit()
}

func (c *Config) validateLLM() error {
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.MaxOutputTokens <= 0 {
		return errors.New("llm.max_output_tokens must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ChunkBudget <= 0 {
		return errors.New("pipeline.chunk_budget must be positive")
	}
	return nil
}

func (c *Config) validateGateway() error {
	if c.Gateway.DispatchTimeoutSeconds <= 0 {
		return errors.New("gateway.dispatch_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	for endpoint, policy := range c.RateLimit.Endpoints {
		if policy.MaxRequests <= 0 {
			return fmt.Errorf("ratelimit.endpoints.%s.max_requests must be positive", endpoint)
		}
		if policy.WindowSeconds <= 0 {
			return fmt.Errorf("ratelimit.endpoints.%s.window_seconds must be positive", endpoint)
		}
	}
	return nil
}
