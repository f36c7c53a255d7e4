package spotify

import "github.com/zmb3/spotify/v2"

// convertTrack reduces a Spotify FullTrack to a Track.
// Tracks without artists get an empty Artist.
func convertTrack(t spotify.FullTrack) Track {
	var artist string
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}

	return Track{
		Name:   t.Name,
		Artist: artist,
		Album:  t.Album.Name,
		URL:    t.ExternalURLs["spotify"],
	}
}
