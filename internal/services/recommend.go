package services

import (
	"sort"
	"strings"

	"github.com/mindbridge-app/mindbridge-backend/internal/models"
)

const (
	// MaxRecommendations caps the recommendation list.
	MaxRecommendations = 6
	// MinScoredRecommendations is the threshold below which the list is
	// backfilled with recently created circles.
	MinScoredRecommendations = 3

	scoreExactMatch  = 3.0
	scoreSubstring   = 2.0
	scoreSharedWord  = 1.0
	scoreTitleHit    = 1.0
	scoreDescription = 0.5
)

// ScoreCircle computes the relevance of a circle for the given normalized
// interests. Interests must already be lowercased and trimmed.
func ScoreCircle(c *models.Circle, interests []string) float64 {
	var score float64

	for _, tag := range c.Tags {
		tag = normalizeTerm(tag)
		if tag == "" {
			continue
		}
		for _, interest := range interests {
			switch {
			case tag == interest:
				score += scoreExactMatch
			case strings.Contains(tag, interest) || strings.Contains(interest, tag):
				score += scoreSubstring
			case sharesWord(tag, interest):
				score += scoreSharedWord
			}
		}
	}

	// Title/description keyword hits, once per interest, independent of tags.
	title := strings.ToLower(c.Title)
	desc := strings.ToLower(c.Description)
	for _, interest := range interests {
		if strings.Contains(title, interest) {
			score += scoreTitleHit
		}
		if strings.Contains(desc, interest) {
			score += scoreDescription
		}
	}

	return score
}

// RankCircles produces the ranked recommendation list from the set of
// eligible circles (public, not joined by the requesting user), preserving
// the incoming order for equal scores.
//
// With no interests the result is simply the most recently created circles.
// With fewer than MinScoredRecommendations matches, the list is backfilled
// by recency without duplicates, up to MaxRecommendations total.
func RankCircles(circles []models.Circle, interests []string) []models.Circle {
	normalized := normalizeInterests(interests)
	if len(normalized) == 0 {
		return capCircles(recentFirst(circles), MaxRecommendations)
	}

	type scored struct {
		circle models.Circle
		score  float64
	}

	matched := make([]scored, 0, len(circles))
	for _, c := range circles {
		c := c
		if s := ScoreCircle(&c, normalized); s > 0 {
			matched = append(matched, scored{circle: c, score: s})
		}
	}

	// Stable: ties keep the original retrieval order.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})

	result := make([]models.Circle, 0, MaxRecommendations)
	for _, sc := range matched {
		if len(result) == MaxRecommendations {
			break
		}
		result = append(result, sc.circle)
	}

	if len(result) < MinScoredRecommendations {
		seen := make(map[string]bool, len(result))
		for _, c := range result {
			seen[c.ID.Hex()] = true
		}
		for _, c := range recentFirst(circles) {
			if len(result) == MaxRecommendations {
				break
			}
			if seen[c.ID.Hex()] {
				continue
			}
			seen[c.ID.Hex()] = true
			result = append(result, c)
		}
	}

	return result
}

func normalizeInterests(interests []string) []string {
	out := make([]string, 0, len(interests))
	for _, in := range interests {
		if n := normalizeTerm(in); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// sharesWord reports whether the two terms have a whitespace-delimited word
// in common (e.g. "mental health" and "mental wellbeing").
func sharesWord(a, b string) bool {
	bWords := strings.Fields(b)
	for _, w := range strings.Fields(a) {
		for _, bw := range bWords {
			if w == bw {
				return true
			}
		}
	}
	return false
}

// recentFirst returns a copy sorted by creation time, newest first.
func recentFirst(circles []models.Circle) []models.Circle {
	out := make([]models.Circle, len(circles))
	copy(out, circles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func capCircles(circles []models.Circle, n int) []models.Circle {
	if len(circles) > n {
		return circles[:n]
	}
	return circles
}
