// Package agent defines agents as configuration: a prompt, a model, and a
// tool whitelist bound to a shared LLM provider. Agents share a pipeline
// State whose values are injected into instructions through {key}
// placeholders, which is how upstream agents hand results to downstream ones.
package agent
