package scoring

import (
	"math"
	"regexp"
	"strconv"

	"maizedigest/app/service/index"

	"github.com/benbjohnson/clock"
	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const (
	cosineEpsilon = 1e-10

	defaultYear = 2023
	maxAgeYears = 3
	minBonus    = 0.1

	// Relevance dominates, recency only nudges the ranking.
	semanticWeight = 0.9
	recencyWeight  = 0.1

	yearScanLimit = 200
)

var yearPattern = regexp.MustCompile(`\b(202[0-9]|203[0])\b`)

// ScoredDocument is a corpus entry with a per-query blended score.
type ScoredDocument struct {
	index.Document

	Score float64 `json:"score"`
	Year  int     `json:"year"`
}

type Service struct {
	clock clock.Clock
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		clock: do.MustInvoke[clock.Clock](di),
	}, nil
}

// Rank scores the whole corpus against the query embedding and returns the
// top k documents, highest score first. Ties keep corpus order.
func (s *Service) Rank(queryEmbedding []float32, corpus []index.Document, k int) []ScoredDocument {
	if k <= 0 || len(corpus) == 0 {
		return nil
	}

	currentYear := s.clock.Now().Year()

	// Sort pointers: SortStableUsing requires a comparable element type and
	// ScoredDocument contains a slice via the embedded Document.
	scored := pie.Map(corpus, func(doc index.Document) *ScoredDocument {
		semantic := Cosine(queryEmbedding, doc.Embedding)
		year := InferYear(doc.Content)
		bonus := RecencyBonus(year, currentYear)

		return &ScoredDocument{
			Document: doc,
			Score:    semantic*semanticWeight + bonus*recencyWeight,
			Year:     year,
		}
	})

	scored = pie.SortStableUsing(scored, func(a, b *ScoredDocument) bool {
		return a.Score > b.Score
	})

	if k > len(scored) {
		k = len(scored)
	}

	return pie.Map(scored[:k], func(doc *ScoredDocument) ScoredDocument {
		return *doc
	})
}

// Cosine returns the cosine similarity of two vectors. The epsilon in the
// denominator guards against zero vectors.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}

// InferYear scans the start of the content for a publication year between
// 2020 and 2030 and takes the most recent match. Best-effort: free text gives
// no guarantee the number actually is a publication year.
func InferYear(content string) int {
	head := []rune(content)
	if len(head) > yearScanLimit {
		head = head[:yearScanLimit]
	}

	matches := yearPattern.FindAllString(string(head), -1)
	if len(matches) == 0 {
		return defaultYear
	}

	year := 0
	for _, m := range matches {
		v, _ := strconv.Atoi(m)
		if v > year {
			year = v
		}
	}

	return year
}

// RecencyBonus maps a document year onto [0.1, 1.0]: current-or-future years
// get the full bonus, anything three or more years old the floor, the rest
// interpolate linearly.
func RecencyBonus(year, currentYear int) float64 {
	if year >= currentYear {
		return 1.0
	}

	age := currentYear - year
	if age >= maxAgeYears {
		return minBonus
	}

	return 1.0 - (float64(age)/maxAgeYears)*0.9
}
