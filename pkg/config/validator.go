package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Feed config
	if c.Feed.URL != "" {
		if u, err := url.Parse(c.Feed.URL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "feed.url",
				Message: "feed URL must be absolute",
			})
		}
	}

	if c.Feed.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "feed.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Query config
	if c.Query.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "query.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Query.SimilarityCutoff < 0 || c.Query.SimilarityCutoff > 1 {
		errors = append(errors, ValidationError{
			Field:   "query.similarity_cutoff",
			Message: "similarity_cutoff must be between 0 and 1",
		})
	}

	return errors
}
