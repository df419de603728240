package domain

// Presence is one connected editor as the rest of its room sees it.
type Presence struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
