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
)

// Favorites owns the user's favorite products and broadcasts every flag
// change to subscribers. Toggles flip the flag before the server answers;
// such flags stay pending until the server confirms or the toggle is
// reverted.
type Favorites struct {
	opts Options
	api  FavoriteAPI

	mu        sync.RWMutex
	items     []domain.Favorite
	favorited map[int64]bool
	pending   map[int64]bool
	loading   tracker
	changes   broadcaster[domain.FavoriteChange]

	mock         []domain.Favorite
	mockProducts []domain.Product
}

// NewFavorites creates an empty favorites container.
func NewFavorites(opts Options, client FavoriteAPI) *Favorites {
	return &Favorites{
		opts:         opts,
		api:          client,
		favorited:    make(map[int64]bool),
		pending:      make(map[int64]bool),
		mockProducts: fixture.MustLoad().Products,
	}
}

// Subscribe registers fn for every favorite flag change. The returned func
// unsubscribes.
func (f *Favorites) Subscribe(fn func(domain.FavoriteChange)) func() {
	return f.changes.subscribe(fn)
}

// Items returns a copy of the loaded favorites.
func (f *Favorites) Items() []domain.Favorite {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.Favorite, len(f.items))
	for i, it := range f.items {
		out[i] = it
		out[i].Product = *it.Product.Clone()
	}
	return out
}

// IsFavorited reports the local flag for a product.
func (f *Favorites) IsFavorited(productID int64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.favorited[productID]
}

// IsPending reports whether a toggle of productID awaits the server.
func (f *Favorites) IsPending(productID int64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pending[productID]
}

// Loading reports whether a favorites fetch is in flight.
func (f *Favorites) Loading() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loading.loading()
}

// FetchFavorites loads the favorites. Failures are logged.
func (f *Favorites) FetchFavorites(ctx context.Context) {
	f.mu.Lock()
	gen := f.loading.begin()
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.loading.end()
		f.mu.Unlock()
	}()

	var (
		items []domain.Favorite
		err   error
	)
	if f.opts.mock() {
		f.mu.RLock()
		items = slices.Clone(f.mock)
		f.mu.RUnlock()
	} else if items, err = f.api.Favorites(ctx); err != nil {
		f.opts.log().WarnContext(ctx, "failed to fetch favorites", slog.String("error", err.Error()))
		return
	}

	f.mu.Lock()
	if !f.loading.current(gen) {
		f.mu.Unlock()
		return
	}
	var changed []domain.FavoriteChange
	now := make(map[int64]bool, len(items))
	for _, it := range items {
		now[it.Product.ID] = true
	}
	for id, fav := range f.favorited {
		if fav && !now[id] && !f.pending[id] {
			changed = append(changed, domain.FavoriteChange{ProductID: id, IsFavorited: false})
		}
	}
	for id := range now {
		if !f.favorited[id] && !f.pending[id] {
			changed = append(changed, domain.FavoriteChange{ProductID: id, IsFavorited: true})
		}
	}
	for _, ch := range changed {
		f.favorited[ch.ProductID] = ch.IsFavorited
	}
	f.items = items
	f.mu.Unlock()

	for _, ch := range changed {
		f.changes.publish(ch)
	}
}

// Toggle flips the favorite flag of a product and returns the state the
// server settled on. The local flag flips first and is reverted when the
// call fails.
func (f *Favorites) Toggle(ctx context.Context, productID int64) (bool, error) {
	f.mu.Lock()
	prev := f.favorited[productID]
	next := !prev
	f.favorited[productID] = next
	f.pending[productID] = true
	f.mu.Unlock()
	f.changes.publish(domain.FavoriteChange{ProductID: productID, IsFavorited: next})

	var (
		res domain.ToggleResult
		err error
	)
	if f.opts.mock() {
		res, err = f.mockToggle(productID)
	} else {
		res, err = f.api.ToggleFavorite(ctx, productID)
	}

	if err != nil {
		f.mu.Lock()
		f.favorited[productID] = prev
		delete(f.pending, productID)
		f.mu.Unlock()
		f.changes.publish(domain.FavoriteChange{ProductID: productID, IsFavorited: prev})
		return prev, err
	}

	f.mu.Lock()
	f.favorited[productID] = res.IsFavorited
	delete(f.pending, productID)
	if !res.IsFavorited {
		f.items = slices.DeleteFunc(f.items, func(it domain.Favorite) bool { return it.Product.ID == productID })
	}
	f.mu.Unlock()

	if res.IsFavorited != next {
		f.changes.publish(domain.FavoriteChange{ProductID: productID, IsFavorited: res.IsFavorited})
	}
	return res.IsFavorited, nil
}

func (f *Favorites) mockToggle(productID int64) (domain.ToggleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i := slices.IndexFunc(f.mock, func(it domain.Favorite) bool { return it.Product.ID == productID }); i >= 0 {
		f.mock = slices.Delete(f.mock, i, i+1)
		return domain.ToggleResult{Message: "已取消收藏", IsFavorited: false}, nil
	}

	pi := slices.IndexFunc(f.mockProducts, func(p domain.Product) bool { return p.ID == productID })
	if pi < 0 {
		return domain.ToggleResult{}, apperrors.NotFound("product", strconv.FormatInt(productID, 10))
	}
	var next int64
	for _, it := range f.mock {
		next = max(next, it.ID)
	}
	p := f.mockProducts[pi].Clone()
	p.IsFavorited = true
	f.mock = append(f.mock, domain.Favorite{ID: next + 1, Product: *p, CreatedAt: domain.NewTime(f.opts.now())})
	return domain.ToggleResult{Message: "已添加到收藏夹", IsFavorited: true}, nil
}

// Remove drops a product from the favorites.
func (f *Favorites) Remove(ctx context.Context, productID int64) error {
	if f.opts.mock() {
		f.mu.Lock()
		i := slices.IndexFunc(f.mock, func(it domain.Favorite) bool { return it.Product.ID == productID })
		if i >= 0 {
			f.mock = slices.Delete(f.mock, i, i+1)
		}
		f.mu.Unlock()
		if i < 0 {
			return apperrors.NotFound("favorite", strconv.FormatInt(productID, 10))
		}
	} else if err := f.api.RemoveFavorite(ctx, productID); err != nil {
		return err
	}

	f.mu.Lock()
	was := f.favorited[productID]
	f.favorited[productID] = false
	f.items = slices.DeleteFunc(f.items, func(it domain.Favorite) bool { return it.Product.ID == productID })
	f.mu.Unlock()

	if was {
		f.changes.publish(domain.FavoriteChange{ProductID: productID, IsFavorited: false})
	}
	return nil
}
