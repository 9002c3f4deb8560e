package domain

import "context"

// Store is durable key/value storage without expiry, the server-side
// stand-in for the browser's localStorage. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the stored value and whether it exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// SettingsLoader resolves the merchant settings for a shop. It never fails.
type SettingsLoader interface {
	Load(ctx context.Context, shop string) MerchantSettings
}

// RateSource supplies rate tables for a base currency.
type RateSource interface {
	GetRates(ctx context.Context, base string, targets []string) (RateTable, error)
}

// SettingsRepository persists merchant settings behind the settings endpoint.
type SettingsRepository interface {
	GetSettings(shop string) (*MerchantSettings, error)
	SaveSettings(s MerchantSettings) error
	ListShops() ([]string, error)
}
