// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
//
// Precedence, lowest first: Default, the YAML file, the environment.
// API keys are only read from JINA_API_KEY or OPENAI_API_KEY.
//
//	snapshot_dir: /var/lib/docsearch
//	dimension: 384
//	search:
//	  default_k: 5
//	  alpha: 0.7
//	cache:
//	  enabled: true
//	  embedding_ttl: 2h
//	  result_ttl: 30m
//	embedder:
//	  provider: local
package config
