// Package errors provides the classified error primitives used across ftdocs.
//
// A ClassifiedError carries a category (config, validation, git, ...), a
// severity and a retry strategy so that callers can decide whether to retry,
// which exit code to return, and how loudly to log without string matching.
//
// Example usage:
//
//	err := errors.GitError("push to deploy branch failed").
//		WithContext("branch", "gh-pages").
//		WithCause(pushErr).
//		Build()
package errors
