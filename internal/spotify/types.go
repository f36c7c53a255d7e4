package spotify

// Track is the reduced track record returned by the search tool.
type Track struct {
	Name   string `json:"name"`
	Artist string `json:"artist"` // First listed artist only
	Album  string `json:"album"`
	URL    string `json:"url"` // Spotify web player link
}
