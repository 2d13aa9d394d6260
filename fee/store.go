package fee

import "context"

// Store persists the configuration record (key "config/fee").
type Store interface {
	// GetFeeConfig returns the stored record, or an error matching
	// dues.ErrConfigNotFound when none has been written.
	GetFeeConfig(ctx context.Context) (*Overrides, error)
	PutFeeConfig(ctx context.Context, o *Overrides) error
}
