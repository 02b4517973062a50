package resolver

import (
	"errors"
	"fmt"
)

// Category classifies resolution failures for transport-layer mapping.
type Category string

const (
	// CategoryInvalidUsage marks malformed identifiers or unrecognized
	// stored metadata. Not retriable; the caller must fix the request.
	CategoryInvalidUsage = Category("invalid_usage")
	// CategoryQuotaExceeded marks a free-tier feed over its daily limit.
	CategoryQuotaExceeded = Category("quota_exceeded")
	// CategoryResolutionFailed wraps extraction engine errors and
	// "no candidate matched" conditions.
	CategoryResolutionFailed = Category("resolution_failed")
)

// CategorizedError attaches a failure category to an underlying error.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e CategorizedError) Error() string {
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error {
	return e.Err
}

func wrapCategory(category Category, err error) error {
	if err == nil {
		return nil
	}
	return CategorizedError{Category: category, Err: err}
}

func invalidUsagef(format string, args ...any) error {
	return CategorizedError{Category: CategoryInvalidUsage, Err: fmt.Errorf(format, args...)}
}

// CategoryOf returns the category of an error, defaulting to
// resolution_failed for uncategorized failures.
func CategoryOf(err error) Category {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryResolutionFailed
}

// ExitCode maps an error to a process exit code for the one-shot CLI mode.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CategoryOf(err) {
	case CategoryInvalidUsage:
		return 2
	case CategoryQuotaExceeded:
		return 3
	case CategoryResolutionFailed:
		return 4
	}
	return 1
}

// QuotaError reports a free-tier feed that exhausted its daily allowance.
// It carries the limit so the user-facing message can name it.
type QuotaError struct {
	Limit int64
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("too many requests: daily limit is %d, consider upgrading the account for unlimited access", e.Limit)
}

// IsInvalidUsage reports whether the error is a caller contract violation.
func IsInvalidUsage(err error) bool {
	return CategoryOf(err) == CategoryInvalidUsage
}

// IsQuotaExceeded reports whether the error is a daily quota rejection.
func IsQuotaExceeded(err error) bool {
	return CategoryOf(err) == CategoryQuotaExceeded
}
