package localstate

import (
	"context"
	"strconv"
)

// Preferences reads and writes UI settings kept in a Store.
type Preferences struct {
	store Store
}

func NewPreferences(store Store) *Preferences {
	return &Preferences{store: store}
}

// DarkMode returns false when the preference was never set or cannot be parsed.
func (p *Preferences) DarkMode(ctx context.Context) (bool, error) {
	value, ok, err := p.store.Get(ctx, DarkModeKey)
	if err != nil || !ok {
		return false, err
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, nil
	}
	return enabled, nil
}

func (p *Preferences) SetDarkMode(ctx context.Context, enabled bool) error {
	return p.store.Set(ctx, DarkModeKey, strconv.FormatBool(enabled))
}
