package models

import (
	"time"

	id "climatecentre/pkg/domain"
)

// Article is one climate information entry, grouped by category on the
// public site.
type Article struct {
	ID          id.RecordID
	Title       string
	Category    string
	Content     string
	SourceURL   string
	CreatedAt   time.Time
	LastUpdated time.Time
}

type BlogPost struct {
	ID        id.RecordID
	Title     string
	Author    string
	Category  string
	Content   string
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GalleryItem struct {
	ID          id.RecordID
	Title       string
	Description string
	ImageURL    string
	CreatedAt   time.Time
}

// DataSource points at an external climate data provider. LastFetched
// is nil until the source has been pulled at least once.
type DataSource struct {
	ID          id.RecordID
	Name        string
	Category    string
	URL         string
	APIEndpoint string
	Description string
	LastFetched *time.Time
	CreatedAt   time.Time
}

// AdminUser marks an account as allowed into the admin surface. Rows
// are created out-of-band; the application only reads them.
type AdminUser struct {
	ID           id.UserID
	Email        string
	IsSuperAdmin bool
	CreatedAt    time.Time
}
