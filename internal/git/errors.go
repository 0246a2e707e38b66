package git

import (
	stderrors "errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

// ClassifyGitError translates go-git errors into ClassifiedErrors so callers
// can decide about retries without string parsing of their own.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}

	// Already classified
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())

	var builder *errors.ErrorBuilder
	switch {
	case stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		strings.Contains(l, "authentication failed"),
		strings.Contains(l, "authentication required"),
		strings.Contains(l, "not authorized"),
		strings.Contains(l, "could not read username"),
		strings.Contains(l, "invalid credentials"):
		builder = errors.AuthError("git authentication failed")
	case stderrors.Is(err, transport.ErrRepositoryNotFound),
		strings.Contains(l, "repository not found"),
		strings.Contains(l, "does not exist"):
		builder = errors.NewError(errors.CategoryNotFound, "git repository not found").UserAction()
	case strings.Contains(l, "rate limit"), strings.Contains(l, "too many requests"):
		builder = errors.NewError(errors.CategoryNetwork, "git remote rate limited").WithRetry(errors.RetryRateLimit)
	case strings.Contains(l, "remote hung up"),
		strings.Contains(l, "connection reset"),
		strings.Contains(l, "connection refused"),
		strings.Contains(l, "timeout"),
		strings.Contains(l, "no route to host"),
		strings.Contains(l, "temporary failure"),
		strings.Contains(l, "unexpected eof"):
		builder = errors.NewError(errors.CategoryNetwork, "git network failure").Retryable()
	case strings.Contains(l, "non-fast-forward"), strings.Contains(l, "diverged"), strings.Contains(l, "rejected"):
		builder = errors.NewError(errors.CategoryPublish, "push rejected by remote").Retryable().WithContext("diverged", true)
	case strings.Contains(l, "unsupported protocol"), strings.Contains(l, "protocol not supported"):
		builder = errors.ConfigError("unsupported git remote protocol")
	default:
		builder = errors.NewError(errors.CategoryGit, "git operation failed")
	}

	return builder.
		WithCause(err).
		WithContext("op", op).
		WithContext("url", url).
		Build()
}
