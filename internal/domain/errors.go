package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a failed call to one of the storefront collaborators
// (settings endpoint, rates endpoint, editor socket).
type NetworkError struct {
	Op        string // e.g. "settings", "rates", "editor"
	Status    int    // HTTP status when the server answered, 0 otherwise
	Err       error
	Retriable bool
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewStatusError creates a network error for a non-success HTTP answer.
// 5xx and 429 are retriable, everything else is not.
func NewStatusError(op string, status int, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Status:    status,
		Err:       err,
		Retriable: status >= 500 || status == 429,
	}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrSettingsUnavailable means the settings endpoint gave nothing usable.
	ErrSettingsUnavailable = errors.New("settings unavailable")

	// ErrRatesUnavailable is returned when the rates endpoint fails or answers without a rates object.
	ErrRatesUnavailable = errors.New("rates unavailable")

	// ErrRateMissing is returned when a rate table has no usable entry for the requested currency.
	ErrRateMissing = errors.New("rate missing")

	// ErrInvalidCurrency is returned for codes that are not three ASCII letters
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrAlreadyInitialized is returned by a second Init on the same widget
	ErrAlreadyInitialized = errors.New("widget already initialized")

	// ErrStorageUnavailable wraps failures of the durable key/value store
	ErrStorageUnavailable = errors.New("storage unavailable")
)
