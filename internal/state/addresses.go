package state

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/fixture"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// Addresses owns the user's address book. At most one address is default
// after every write, in both modes.
type Addresses struct {
	opts Options
	api  AddressAPI

	mu      sync.RWMutex
	list    []domain.Address
	loading tracker

	mock []domain.Address
}

// NewAddresses creates an empty address book.
func NewAddresses(opts Options, client AddressAPI) *Addresses {
	return &Addresses{
		opts: opts,
		api:  client,
		mock: fixture.MustLoad().Addresses,
	}
}

// List returns a copy of the addresses.
func (a *Addresses) List() []domain.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.list)
}

// DefaultAddress returns the default address, if one is set.
func (a *Addresses) DefaultAddress() (domain.Address, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return domain.FindDefault(a.list)
}

// Loading reports whether an address fetch is in flight.
func (a *Addresses) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading.loading()
}

// FetchAddresses loads the address book. Failures are logged.
func (a *Addresses) FetchAddresses(ctx context.Context) {
	a.mu.Lock()
	gen := a.loading.begin()
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.loading.end()
		a.mu.Unlock()
	}()

	var (
		list []domain.Address
		err  error
	)
	if a.opts.mock() {
		a.mu.RLock()
		list = slices.Clone(a.mock)
		a.mu.RUnlock()
	} else if list, err = a.api.Addresses(ctx); err != nil {
		a.opts.log().WarnContext(ctx, "failed to fetch addresses", slog.String("error", err.Error()))
		return
	}

	if n := domain.CountDefaults(list); n > 1 {
		a.opts.log().WarnContext(ctx, "address book has several defaults", slog.Int("defaults", n))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loading.current(gen) {
		a.list = list
	}
}

// CreateAddress saves a new address.
func (a *Addresses) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	if err := validator.Check(in); err != nil {
		return nil, err
	}

	var created domain.Address
	if a.opts.mock() {
		a.mu.Lock()
		var next int64
		for _, addr := range a.mock {
			next = max(next, addr.ID)
		}
		created = domain.Address{ID: next + 1}
		in.Apply(&created)
		a.mock = append(a.mock, created)
		if created.IsDefault {
			domain.MakeDefault(a.mock, created.ID)
		}
		a.mu.Unlock()
	} else {
		res, err := a.api.CreateAddress(ctx, in)
		if err != nil {
			return nil, err
		}
		created = *res
	}

	a.mu.Lock()
	a.list = append(a.list, created)
	if created.IsDefault {
		domain.MakeDefault(a.list, created.ID)
	}
	a.loading.gen++
	a.mu.Unlock()
	return &created, nil
}

// UpdateAddress replaces an address. Making it default clears the flag on
// every other address.
func (a *Addresses) UpdateAddress(ctx context.Context, id int64, in domain.AddressInput) (*domain.Address, error) {
	if err := validator.Check(in); err != nil {
		return nil, err
	}

	var updated domain.Address
	if a.opts.mock() {
		a.mu.Lock()
		i := slices.IndexFunc(a.mock, func(x domain.Address) bool { return x.ID == id })
		if i < 0 {
			a.mu.Unlock()
			return nil, apperrors.NotFound("address", strconv.FormatInt(id, 10))
		}
		in.Apply(&a.mock[i])
		if in.IsDefault {
			domain.MakeDefault(a.mock, id)
		}
		updated = a.mock[i]
		a.mu.Unlock()
	} else {
		res, err := a.api.UpdateAddress(ctx, id, in)
		if err != nil {
			return nil, err
		}
		updated = *res
	}

	a.mu.Lock()
	if i := slices.IndexFunc(a.list, func(x domain.Address) bool { return x.ID == id }); i >= 0 {
		a.list[i] = updated
	} else {
		a.list = append(a.list, updated)
	}
	if updated.IsDefault {
		domain.MakeDefault(a.list, id)
	}
	a.loading.gen++
	a.mu.Unlock()
	return &updated, nil
}

// SetDefault makes id the default address.
func (a *Addresses) SetDefault(ctx context.Context, id int64) error {
	a.mu.RLock()
	i := slices.IndexFunc(a.list, func(x domain.Address) bool { return x.ID == id })
	var addr domain.Address
	if i >= 0 {
		addr = a.list[i]
	}
	a.mu.RUnlock()
	if i < 0 {
		return apperrors.NotFound("address", strconv.FormatInt(id, 10))
	}

	in := domain.InputOf(addr)
	in.IsDefault = true
	_, err := a.UpdateAddress(ctx, id, in)
	return err
}

// DeleteAddress removes an address.
func (a *Addresses) DeleteAddress(ctx context.Context, id int64) error {
	if a.opts.mock() {
		a.mu.Lock()
		i := slices.IndexFunc(a.mock, func(x domain.Address) bool { return x.ID == id })
		if i < 0 {
			a.mu.Unlock()
			return apperrors.NotFound("address", strconv.FormatInt(id, 10))
		}
		a.mock = slices.Delete(a.mock, i, i+1)
		a.mu.Unlock()
	} else if err := a.api.DeleteAddress(ctx, id); err != nil {
		return err
	}

	a.mu.Lock()
	a.list = slices.DeleteFunc(a.list, func(x domain.Address) bool { return x.ID == id })
	a.loading.gen++
	a.mu.Unlock()
	return nil
}
