package catalog

import (
	"context"
	"log"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"marquee/models"
)

// SortPopularityDesc is the default listing order.
const SortPopularityDesc = "popularity.desc"

type tmdbMovie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	ReleaseDate      string  `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
}

type tmdbMovieList struct {
	Page         int         `json:"page"`
	Results      []tmdbMovie `json:"results"`
	TotalResults int         `json:"total_results"`
}

type tmdbMovieDetail struct {
	tmdbMovie
	Overview            string                  `json:"overview"`
	Genres              []models.Genre          `json:"genres"`
	Budget              int64                   `json:"budget"`
	Revenue             int64                   `json:"revenue"`
	Tagline             string                  `json:"tagline"`
	Runtime             int                     `json:"runtime"`
	Status              string                  `json:"status"`
	SpokenLanguages     []tmdbSpokenLanguage    `json:"spoken_languages"`
	ProductionCompanies []tmdbProductionCompany `json:"production_companies"`
}

type tmdbSpokenLanguage struct {
	ISO639      string `json:"iso_639_1"`
	Name        string `json:"name"`
	EnglishName string `json:"english_name"`
}

type tmdbProductionCompany struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path"`
	OriginCountry string `json:"origin_country"`
}

type tmdbVideoList struct {
	Results []struct {
		ID       string `json:"id"`
		Key      string `json:"key"`
		Name     string `json:"name"`
		Site     string `json:"site"`
		Type     string `json:"type"`
		Official bool   `json:"official"`
		Size     int    `json:"size"`
		ISO639   string `json:"iso_639_1"`
	} `json:"results"`
}

// SearchMovies runs a keyword search. The query is sent as given; callers
// normalise it first.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]models.MovieSummary, error) {
	params := url.Values{"query": []string{query}}
	var resp tmdbMovieList
	if err := c.get(ctx, "search", "/search/movie", params, &resp); err != nil {
		return nil, err
	}
	return summarize(resp.Results), nil
}

// DiscoverMovies returns the default listing, sorted by sortBy
// (popularity.desc when empty).
func (c *Client) DiscoverMovies(ctx context.Context, sortBy string) ([]models.MovieSummary, error) {
	if strings.TrimSpace(sortBy) == "" {
		sortBy = SortPopularityDesc
	}
	params := url.Values{"sort_by": []string{sortBy}}
	var resp tmdbMovieList
	if err := c.get(ctx, "discover", "/discover/movie", params, &resp); err != nil {
		return nil, err
	}
	return summarize(resp.Results), nil
}

// GetMovie fetches the full record for one movie. Concurrent lookups for the
// same id share a single request; every caller gets its own copy.
func (c *Client) GetMovie(ctx context.Context, id int64) (*models.MovieDetail, error) {
	idStr := strconv.FormatInt(id, 10)
	key := cacheKey("tmdb", "movie", idStr, c.language)
	v, err := c.shared(ctx, "movie", key, func(ctx context.Context) (any, error) {
		if c.cache != nil {
			var cached models.MovieDetail
			if ok, _ := c.cache.get(key, &cached); ok {
				return &cached, nil
			}
		}
		var raw tmdbMovieDetail
		if err := c.get(ctx, "movie", "/movie/"+idStr, nil, &raw); err != nil {
			return nil, err
		}
		detail := toDetail(&raw)
		if c.cache != nil {
			if err := c.cache.set(key, detail); err != nil {
				log.Printf("[catalog] failed to cache movie %d: %v", id, err)
			}
		}
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	detail := *v.(*models.MovieDetail)
	return &detail, nil
}

// GetVideos lists the videos attached to a movie.
func (c *Client) GetVideos(ctx context.Context, id int64) ([]models.Video, error) {
	idStr := strconv.FormatInt(id, 10)
	key := cacheKey("tmdb", "videos", idStr, c.language)
	v, err := c.shared(ctx, "videos", key, func(ctx context.Context) (any, error) {
		var videos []models.Video
		if c.cache != nil {
			if ok, _ := c.cache.get(key, &videos); ok {
				return videos, nil
			}
		}
		var raw tmdbVideoList
		if err := c.get(ctx, "videos", "/movie/"+idStr+"/videos", nil, &raw); err != nil {
			return nil, err
		}
		videos = make([]models.Video, 0, len(raw.Results))
		for _, r := range raw.Results {
			videos = append(videos, models.Video{
				ID:       r.ID,
				Key:      strings.TrimSpace(r.Key),
				Name:     strings.TrimSpace(r.Name),
				Site:     strings.TrimSpace(r.Site),
				Type:     strings.TrimSpace(r.Type),
				Official: r.Official,
				Size:     r.Size,
				Language: r.ISO639,
			})
		}
		if c.cache != nil {
			if err := c.cache.set(key, videos); err != nil {
				log.Printf("[catalog] failed to cache videos for movie %d: %v", id, err)
			}
		}
		return videos, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]models.Video)), nil
}

func summarize(raw []tmdbMovie) []models.MovieSummary {
	out := make([]models.MovieSummary, 0, len(raw))
	for _, m := range raw {
		if m.ID <= 0 {
			continue
		}
		out = append(out, toSummary(m))
	}
	return out
}

func toSummary(m tmdbMovie) models.MovieSummary {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = strings.TrimSpace(m.OriginalTitle)
	}
	return models.MovieSummary{
		ID:               m.ID,
		Title:            title,
		PosterPath:       m.PosterPath,
		Popularity:       m.Popularity,
		VoteAverage:      m.VoteAverage,
		ReleaseDate:      m.ReleaseDate,
		OriginalLanguage: m.OriginalLanguage,
	}
}

func toDetail(raw *tmdbMovieDetail) *models.MovieDetail {
	detail := &models.MovieDetail{
		MovieSummary:        toSummary(raw.tmdbMovie),
		Overview:            strings.TrimSpace(raw.Overview),
		Genres:              raw.Genres,
		Budget:              raw.Budget,
		Revenue:             raw.Revenue,
		Tagline:             strings.TrimSpace(raw.Tagline),
		BackdropPath:        raw.BackdropPath,
		RuntimeMinutes:      raw.Runtime,
		Status:              raw.Status,
		SpokenLanguages:     make([]models.SpokenLanguage, 0, len(raw.SpokenLanguages)),
		ProductionCompanies: make([]models.ProductionCompany, 0, len(raw.ProductionCompanies)),
	}
	if detail.Genres == nil {
		detail.Genres = []models.Genre{}
	}
	for _, l := range raw.SpokenLanguages {
		detail.SpokenLanguages = append(detail.SpokenLanguages, models.SpokenLanguage{
			ISO639:      l.ISO639,
			Name:        l.Name,
			EnglishName: l.EnglishName,
		})
	}
	for _, pc := range raw.ProductionCompanies {
		detail.ProductionCompanies = append(detail.ProductionCompanies, models.ProductionCompany{
			ID:            pc.ID,
			Name:          pc.Name,
			LogoPath:      pc.LogoPath,
			OriginCountry: pc.OriginCountry,
		})
	}
	return detail
}
