package domain

// AnnouncementEvent is one decoded message from the announcement feed.
// It lives for exactly one dispatch and is never stored.
type AnnouncementEvent struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CatalogID int    `json:"catalogId"`
}
