package domain

// Favorite is a product the user saved.
type Favorite struct {
	ID        int64   `json:"id"`
	Product   Product `json:"product"`
	CreatedAt Time    `json:"created_at"`
}

// FavoriteChange is broadcast when a product's favorite flag flips.
type FavoriteChange struct {
	ProductID   int64 `json:"product_id"`
	IsFavorited bool  `json:"is_favorited"`
}

// ToggleResult is the body of favorites/toggle/.
type ToggleResult struct {
	Message     string `json:"message"`
	IsFavorited bool   `json:"is_favorited"`
}
