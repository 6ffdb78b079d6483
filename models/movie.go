package models

// Basic catalog structures for movies and their videos.

type MovieSummary struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	PosterPath       string  `json:"posterPath,omitempty"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"voteAverage"`
	ReleaseDate      string  `json:"releaseDate,omitempty"`
	OriginalLanguage string  `json:"originalLanguage,omitempty"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SpokenLanguage struct {
	ISO639      string `json:"iso639"`
	Name        string `json:"name"`
	EnglishName string `json:"englishName,omitempty"`
}

type ProductionCompany struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logoPath,omitempty"`
	OriginCountry string `json:"originCountry,omitempty"`
}

// MovieDetail is the full record shown on a movie's detail view.
type MovieDetail struct {
	MovieSummary
	Overview            string              `json:"overview"`
	Genres              []Genre             `json:"genres"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Tagline             string              `json:"tagline,omitempty"`
	SpokenLanguages     []SpokenLanguage    `json:"spokenLanguages"`
	ProductionCompanies []ProductionCompany `json:"productionCompanies"`
	BackdropPath        string              `json:"backdropPath,omitempty"`
	RuntimeMinutes      int                 `json:"runtimeMinutes,omitempty"`
	Status              string              `json:"status,omitempty"`
	TrailerKey          *string             `json:"trailerKey"` // nil when no YouTube trailer was found
}

// Video is one entry of a movie's videos listing (trailers, teasers, clips).
type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
	Size     int    `json:"size,omitempty"`
	Language string `json:"language,omitempty"`
}
