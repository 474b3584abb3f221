package rag

import "time"

// ServiceConfig configures a model-serving HTTP endpoint.
type ServiceConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Path    string        `mapstructure:"path"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Retries is the number of retries on transport errors and 5xx answers. Zero disables retrying.
	Retries int `mapstructure:"retries"`
}

// URL returns the full endpoint URL.
func (c ServiceConfig) URL() string {
	return c.BaseURL + c.Path
}

// DefaultEmbedderConfig returns the config for a local Ollama all-minilm model (384 dimensions).
func DefaultEmbedderConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL: "http://127.0.0.1:11434",
		Path:    "/api/embeddings",
		Model:   "all-minilm",
		Timeout: 30 * time.Second,
	}
}

// DefaultGeneratorConfig returns the config for a local Ollama llama3 model.
func DefaultGeneratorConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL: "http://127.0.0.1:11434",
		Path:    "/api/generate",
		Model:   "llama3",
		Timeout: 2 * time.Minute,
	}
}

// StoreConfig configures the pgvector document table.
type StoreConfig struct {
	Table      string `mapstructure:"table"`
	Dimensions int    `mapstructure:"dimensions"`
	// BatchSize bounds the rows per INSERT statement; all statements of a batch share one transaction
	BatchSize   int  `mapstructure:"batchSize"`
	CreateIndex bool `mapstructure:"createIndex"`
}

// DefaultStoreConfig returns a StoreConfig with default values
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Table:      "documents",
		Dimensions: 384,
		BatchSize:  100,
	}
}

// PipelineConfig configures retrieval and prompt construction.
type PipelineConfig struct {
	TopK        int    `mapstructure:"topK"`
	Instruction string `mapstructure:"instruction"`
}

// DefaultPipelineConfig returns a PipelineConfig with default values
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TopK:        5,
		Instruction: DefaultInstruction,
	}
}
