// Package config loads runtime configuration from defaults, an optional YAML
// file and COMPANION_* environment variables.
//
// # Basic Usage
//
//	cfg, err := config.Load("") // or a path to config.yaml
//	if err != nil {
//	    return err
//	}
//
// # Precedence
//
// Built-in defaults are overlaid by the YAML file, which is overlaid by the
// environment. A .env file in the working directory is loaded into the
// environment first. API keys are read from COMPANION_OPENAI_API_KEY or the
// plain OPENAI_API_KEY (likewise GEMINI_API_KEY and JINA_API_KEY).
//
// # Example YAML
//
//	extensions: [".go", ".md"]
//	chunk_size: 800
//	chunk_overlap: 100
//	embedding_provider: openai
//	embedding_timeout: 10s
//	generation_provider: none
package config
