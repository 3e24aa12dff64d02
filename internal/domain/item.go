package domain

import (
	"errors"
	"time"
)

var ErrItemNotFound = errors.New("item not found")

// Item is a tracked market listing (a skin, sticker, agent...).
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Folder      string    `json:"folder,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// FavoriteFolder groups items the way the market site's favourites do.
type FavoriteFolder struct {
	ID    string
	Name  string
	Items []Item
}
