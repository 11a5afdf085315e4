// Package main runs the UI builder backend.
//
// The server turns natural-language prompts into HTML/CSS/JS components
// using an Ollama-compatible endpoint and serves a sandboxed live preview
// of the result.
//
//	Browser ─▶ REST + /stream ─▶ generation ─▶ Ollama
//	                          └▶ workspace ─▶ preview frame
//
// Configuration comes from the environment (see internal/infrastructure/config).
// A .env file and the YAML or TOML file named by CONFIG_FILE fill in unset
// variables.
//
// Usage:
//
//	LLM_BASE_URL=http://localhost:11434 LLM_MODEL=llama3 ./server
//
//	# colored logs, debug level
//	LOG_DEV=true ./server
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
