// Package llm defines the unified chat-completion contract the rest of the
// service programs against. The language-model runtime itself is an external
// collaborator: concrete providers live under providers/ and are injected
// wherever a completion is needed, so pipelines and agents stay testable
// without a live model.
package llm
