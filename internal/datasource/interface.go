// Package datasource fetches games, market quotes and optional side tables
// from external providers.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/models"
)

// GameSource supplies scheduled and completed games. Scheduled games carry
// no scores.
type GameSource interface {
	// GamesBetween returns games with dates in [start, end], inclusive by day.
	GamesBetween(ctx context.Context, start, end time.Time) ([]models.GameRecord, error)

	// Name returns the name of the data source
	Name() string
}

// QuoteSource supplies moneyline quotes for a day's games.
type QuoteSource interface {
	QuotesOn(ctx context.Context, date time.Time) ([]models.MarketQuote, error)
	Name() string
}

// SideTableSource loads the optional lookup tables. Absent data yields empty
// tables, never nil.
type SideTableSource interface {
	LoadSideTables(ctx context.Context) (*features.SideTables, error)
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the sentinel matching Code, falling back to the cause.
func (e DataSourceError) Unwrap() []error {
	out := make([]error, 0, 2)
	if s, ok := codeSentinels[e.Code]; ok {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeDisabled             = "disabled"
	ErrCodeUnknown              = "unknown"
)

var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
	ErrDisabled             = errors.New("data source disabled")
)

var codeSentinels = map[string]error{
	ErrCodeRateLimitExceeded:    ErrRateLimitExceeded,
	ErrCodeAuthenticationFailed: ErrAuthenticationFailed,
	ErrCodeNotFound:             ErrNotFound,
	ErrCodeInvalidData:          ErrInvalidData,
	ErrCodeNetworkError:         ErrNetworkError,
	ErrCodeServerError:          ErrServerError,
	ErrCodeDisabled:             ErrDisabled,
}

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
