package service

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// Fields addressable in a search query as "field: value".
var filterPattern = regexp.MustCompile(`\b(artist|title|year|type)\s*:\s*([^,]+)`)

// Free-text relevance runs over these album fields.
var searchFields = []string{"artist", "title"}

// SearchService parses user queries and resolves them against the album
// collection. A query mixes free text with "field: value" filters,
// comma-separated:
//
//	fire
//	artist: low
//	fire, artist: low, year: 2001
//
// Filter-only queries bypass the relevance index and run as exact-match
// lookups; mixed queries run the free text first and then intersect with
// the filters.
type SearchService struct {
	// Dependencies (injected)
	logger *slog.Logger
	albums ports.DocumentStore[domain.Album]
}

// NewSearchService creates a new search service.
func NewSearchService(logger *slog.Logger, albums ports.DocumentStore[domain.Album]) *SearchService {
	return &SearchService{
		logger: logger,
		albums: albums,
	}
}

// parsedQuery is the structured form of a user query.
type parsedQuery struct {
	filters map[string]any
	text    string
}

// parseQuery extracts "field: value" filters and leaves the rest as free
// text. A year filter becomes a number so it matches the stored field.
func parseQuery(query string) parsedQuery {
	parsed := parsedQuery{filters: make(map[string]any)}

	rest := filterPattern.ReplaceAllStringFunc(query, func(match string) string {
		groups := filterPattern.FindStringSubmatch(match)
		field := groups[1]
		value := strings.TrimSpace(groups[2])
		if value == "" {
			return ""
		}

		if field == "year" {
			year, err := strconv.Atoi(value)
			if err != nil {
				// Not a number: treat the whole token as free text
				return match
			}
			parsed.filters[field] = year
			return ""
		}

		parsed.filters[field] = value
		return ""
	})

	words := make([]string, 0)
	for _, word := range strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		if word != "" {
			words = append(words, word)
		}
	}
	parsed.text = strings.Join(words, " ")

	return parsed
}

// Search resolves a query to matching albums. An empty query matches
// nothing.
func (s *SearchService) Search(query string) ([]domain.Album, error) {
	parsed := parseQuery(query)

	if parsed.text == "" && len(parsed.filters) == 0 {
		return []domain.Album{}, nil
	}

	s.logger.Debug("search",
		slog.String("text", parsed.text),
		slog.Int("filters", len(parsed.filters)))

	// Filters only: exact lookup, no relevance ranking needed
	if parsed.text == "" {
		return s.albums.Find(parsed.filters)
	}

	matches, err := s.albums.Search(parsed.text, searchFields)
	if err != nil {
		return nil, err
	}
	if len(parsed.filters) == 0 {
		return matches, nil
	}

	// Intersect the ranked matches with the filters, keeping rank order
	filtered := make([]domain.Album, 0, len(matches))
	for _, album := range matches {
		if matchesFilters(album, parsed.filters) {
			filtered = append(filtered, album)
		}
	}
	return filtered, nil
}

// matchesFilters applies the parsed filters to one album. Text fields
// compare case-insensitively; year and type compare exactly.
func matchesFilters(album domain.Album, filters map[string]any) bool {
	for field, want := range filters {
		switch field {
		case "artist":
			if !strings.EqualFold(album.Artist, want.(string)) {
				return false
			}
		case "title":
			if !strings.EqualFold(album.Title, want.(string)) {
				return false
			}
		case "year":
			if album.Year != want.(int) {
				return false
			}
		case "type":
			if album.Type != domain.ParseAlbumType(want.(string)) {
				return false
			}
		}
	}
	return true
}
