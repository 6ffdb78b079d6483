package catalog

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"

	PosterSize   = "w500"
	BackdropSize = "original"
)

// ImageURL builds an absolute TMDB image URL for path at the given size.
// Empty paths yield an empty string so callers can fall back to a placeholder.
func ImageURL(path, size string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if size == "" {
		size = PosterSize
	}
	return tmdbImageBaseURL + "/" + size + "/" + strings.TrimPrefix(path, "/")
}

// PosterURL is ImageURL at poster size.
func PosterURL(path string) string {
	return ImageURL(path, PosterSize)
}

// normalizeLanguage turns user supplied language codes into the
// language-REGION form TMDB expects, defaulting the region to US.
func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if lang == "" {
		return "en-US"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en-US"
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf != language.Exact {
		return base.String() + "-US"
	}
	return base.String() + "-" + region.String()
}
