package resolver

import (
	"fmt"

	"flixd/models"
)

// providerCatalog is the ordered embed fallback list. Order matters: ad-free
// hosts come first and the UI walks the list top to bottom when a source
// fails. Changing the lineup is a data edit, not a code change.
var providerCatalog = []models.EmbedProvider{
	{ID: "rivestream", Name: "Best Server", AdFree: true,
		MovieTemplate:   "https://rivestream.net/embed?type=movie&id=%s",
		EpisodeTemplate: "https://rivestream.net/embed?type=tv&id=%s&season=%d&episode=%d"},
	{ID: "vidjoy", Name: "VidJoy", AdFree: true,
		MovieTemplate:   "https://vidjoy.pro/embed/movie/%s",
		EpisodeTemplate: "https://vidjoy.pro/embed/tv/%s/%d/%d"},
	{ID: "warezcdn", Name: "Portugues", AdFree: true,
		MovieTemplate:   "https://embed.warezcdn.link/filme/%s",
		EpisodeTemplate: "https://embed.warezcdn.link/serie/%s/%d/%d"},
	{ID: "insertunit", Name: "Russian", AdFree: true, RequiresIMDB: true,
		MovieTemplate:   "https://api.insertunit.ws/embed/imdb/%s",
		EpisodeTemplate: "https://api.insertunit.ws/embed/imdb/%s?season=%d&episode=%d"},
	{ID: "frembed", Name: "French", AdFree: true,
		MovieTemplate:   "https://frembed.icu/api/film.php?id=%s",
		EpisodeTemplate: "https://frembed.live/api/serie.php?id=%s&sa=%d&epi=%d"},
	{ID: "videasy", Name: "Videasy", AdFree: true,
		MovieTemplate:   "https://player.videasy.net/movie/%s",
		EpisodeTemplate: "https://player.videasy.net/tv/%s/%d/%d?nextEpisode=true&autoplayNextEpisode=true&episodeSelector=true&color=8B5CF6"},
	{ID: "vidzee", Name: "Vidzee", AdFree: true,
		MovieTemplate:   "https://player.vidzee.wtf/embed/movie/%s?server=1",
		EpisodeTemplate: "https://player.vidzee.wtf/embed/tv/%s/%d/%d?server=1"},
	{ID: "vidsrc-rip", Name: "Vidsrc Rip", AdFree: true,
		MovieTemplate:   "https://vidsrc.rip/embed/movie/%s",
		EpisodeTemplate: "https://vidsrc.rip/embed/tv/%s/%d/%d"},
	{ID: "vidpro", Name: "Vidpro", AdFree: true,
		MovieTemplate:   "https://player.vidpro.top/embed/movie/%s",
		EpisodeTemplate: "https://player.vidsrc.co/embed/tv/%s/%d/%d"},

	// Hosts below carry ads.
	{ID: "vidify", Name: "Hindi",
		MovieTemplate:   "https://player.vidify.top/embed/movie/%s?server=hindi",
		EpisodeTemplate: "https://vidify.top/embed/tv/%s/%d/%d?server=multi"},
	{ID: "vidlink", Name: "VidLink",
		MovieTemplate:   "https://vidlink.pro/movie/%s",
		EpisodeTemplate: "https://vidlink.pro/tv/%s/%d/%d?primaryColor=63b8bc&secondaryColor=a2a2a2&iconColor=eefdec&icons=default&player=default&title=true&poster=true&autoplay=true&nextbutton=true"},
	{ID: "embed-su", Name: "EmbedSU",
		MovieTemplate:   "https://embed.su/embed/movie/%s",
		EpisodeTemplate: "https://embed.su/embed/tv/%s/%d/%d"},
	{ID: "multiembed", Name: "SuperEmbed",
		MovieTemplate:   "https://multiembed.mov/?video_id=%s&tmdb=1",
		EpisodeTemplate: "https://vidbinge.dev/embed/tv/%s/%d/%d"},
	{ID: "111movies", Name: "111Movies",
		MovieTemplate:   "https://111movies.com/movie/%s",
		EpisodeTemplate: "https://111movies.com/tv/%s/%d/%d"},
	{ID: "vidfast", Name: "Vidfast",
		MovieTemplate:   "https://vidfast.pro/movie/%s",
		EpisodeTemplate: "https://vidfast.pro/tv/%s/%d/%d?nextButton=true&autoNext=true"},
	{ID: "vidsrc-xyz", Name: "VidSrc",
		MovieTemplate:   "https://vidsrc.xyz/embed/movie/%s",
		EpisodeTemplate: "https://vidsrc.xyz/embed/tv/%s/%d/%d"},
	{ID: "filmku", Name: "FilmKu",
		MovieTemplate:   "https://filmku.stream/embed/movie?tmdb=%s",
		EpisodeTemplate: "https://filmku.stream/embed/series?tmdb=%s&sea=%d&epi=%d"},
	{ID: "nontongo", Name: "Nontongo",
		MovieTemplate:   "https://nontongo.win/embed/movie/%s",
		EpisodeTemplate: "https://nontongo.win/embed/tv/%s/%d/%d"},
}

// Providers returns the catalog in fallback order.
func Providers() []models.EmbedProvider {
	out := make([]models.EmbedProvider, len(providerCatalog))
	copy(out, providerCatalog)
	return out
}

// ProviderByID finds a catalog entry.
func ProviderByID(id string) (models.EmbedProvider, bool) {
	for _, p := range providerCatalog {
		if p.ID == id {
			return p, true
		}
	}
	return models.EmbedProvider{}, false
}

// NextProvider suggests the provider after current in catalog order. It
// returns false when current is the last entry or not in the catalog.
func NextProvider(currentID string) (models.EmbedProvider, bool) {
	for i, p := range providerCatalog {
		if p.ID == currentID {
			if i+1 < len(providerCatalog) {
				return providerCatalog[i+1], true
			}
			return models.EmbedProvider{}, false
		}
	}
	return models.EmbedProvider{}, false
}

// embedURL renders a provider template for one playable unit. titleID is the
// catalog id, or the IMDB id for providers that require it.
func embedURL(p models.EmbedProvider, titleID string, req models.PlaybackRequest) string {
	if req.MediaType == models.MediaTypeSeries {
		return fmt.Sprintf(p.EpisodeTemplate, titleID, req.Season, req.Episode)
	}
	return fmt.Sprintf(p.MovieTemplate, titleID)
}
