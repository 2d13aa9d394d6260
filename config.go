package dues

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/internal/validation"
)

// Config returns the effective configuration. A missing record resolves to
// the defaults and a partial one has every absent field defaulted. Only a
// store failure is an error.
func (d *Dues) Config(ctx context.Context) (fee.Config, error) {
	o, err := d.store.GetFeeConfig(ctx)
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			return fee.Config{}, fmt.Errorf("%w: read fee config: %w", ErrUnavailable, err)
		}
		o = nil
	}
	return o.Resolve().Clone(), nil
}

// SetConfig validates and stores an overrides record.
func (d *Dues) SetConfig(ctx context.Context, o *fee.Overrides) error {
	if o == nil {
		return ValidationError{Field: "config", Message: "required"}
	}
	if err := ValidateOverrides(o); err != nil {
		return err
	}
	if err := d.store.PutFeeConfig(ctx, o); err != nil {
		return fmt.Errorf("dues: write fee config: %w", err)
	}
	d.logger.Info("fee config updated")
	return nil
}

// ValidateOverrides checks every present field of o against its validate
// tags. Failures come back as a MultiError of ValidationErrors, sorted by
// field, wrapped in ErrInvalidConfig.
func ValidateOverrides(o *fee.Overrides) error {
	err := validation.Struct(o)
	if err == nil {
		return nil
	}
	fields := validation.Fields(err)
	if fields == nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var errs MultiError
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		errs.Add(ValidationError{Field: field, Message: fields[field]})
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
}
