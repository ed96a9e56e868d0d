package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E199)
	// ============================================

	"E100": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Detail:     "The configuration file passed with --config does not exist.",
		Suggestion: "Check the path, or omit --config to use poolserve.json from the working directory",
	},
	"E101": {
		Category:   CategoryConfig,
		Message:    "Configuration file could not be parsed",
		Detail:     "poolserve.json must be a single JSON object.",
		Suggestion: "Validate the file with a JSON linter",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "Invalid thread count",
		Detail:     "The worker pool needs at least one thread.",
		Suggestion: "Set threads to 1 or more",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "Invalid content backend",
		Detail:     "content.backend must be \"fs\" or \"s3\".",
		Suggestion: "Use \"fs\" to serve a local directory",
	},
	"E104": {
		Category:   CategoryConfig,
		Message:    "Invalid duration",
		Detail:     "Durations use Go syntax such as \"500ms\", \"5s\" or \"1m\".",
		Suggestion: "Use a value accepted by time.ParseDuration",
	},
	"E105": {
		Category:   CategoryConfig,
		Message:    "Missing S3 bucket",
		Detail:     "The s3 content backend needs content.s3.bucket.",
		Suggestion: "Set content.s3.bucket or switch content.backend to \"fs\"",
	},
	"E106": {
		Category:   CategoryConfig,
		Message:    "Invalid log setting",
		Detail:     "log.level must be debug, info, warn or error and log.format must be text or json.",
	},

	// ============================================
	// Server Errors (E200-E299)
	// ============================================

	"E200": {
		Category:   CategoryServer,
		Message:    "Failed to bind address",
		Detail:     "The listener could not be opened. Another process may own the port.",
		Suggestion: "Pick another address with --addr",
	},
	"E201": {
		Category: CategoryServer,
		Message:  "Server failed",
		Detail:   "The accept loop stopped with an error.",
	},
}

// Codes returns all registered error codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
