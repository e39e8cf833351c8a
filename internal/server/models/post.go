package models

import "time"

type Post struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Author      PublicUser `json:"author"`
	ImageURLs   []string   `json:"imageUrls"`
	Tags        []string   `json:"tags"`
	Artists     []string   `json:"artists"`
	Likes       int        `json:"likes"`
	CreatedAt   time.Time  `json:"createdAt"`
}
