// Package provider implements the translation backends.
package provider

import (
	"fmt"

	"github.com/ZaguanLabs/memotl"
)

// Backend is an alias to the main package interface for convenience.
type Backend = memotl.Backend

// TranslateRequest is an alias to the main package type.
type TranslateRequest = memotl.TranslateRequest

// buildPrompt renders the instruction sent to local model servers.
func buildPrompt(req TranslateRequest) string {
	return fmt.Sprintf(
		"Translate the following %s text into %s.\n\n%s\n\nReply with the translation only, without any explanation.",
		memotl.LanguageName(req.SourceLang),
		memotl.LanguageName(req.TargetLang),
		req.Text,
	)
}

// isRetryableStatus reports whether an HTTP status is worth retrying.
func isRetryableStatus(code int) bool {
	return code == 429 || code >= 500
}
