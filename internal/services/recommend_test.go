package services

import (
	"testing"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func circleWithTags(title string, createdAt time.Time, tags ...string) models.Circle {
	return models.Circle{
		ID:         primitive.NewObjectID(),
		CreatedAt:  createdAt,
		Title:      title,
		Visibility: models.CirclePublic,
		Tags:       tags,
	}
}

func titles(circles []models.Circle) []string {
	out := make([]string, len(circles))
	for i, c := range circles {
		out[i] = c.Title
	}
	return out
}

func TestExactTagBeatsSubstring(t *testing.T) {
	now := time.Now().UTC()
	x := circleWithTags("X", now, "Anxiety")
	y := circleWithTags("Y", now, "Anxiety Support")

	ranked := RankCircles([]models.Circle{y, x}, []string{"Anxiety"})

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"X", "Y"}, titles(ranked))
}

func TestScoreWeights(t *testing.T) {
	c := circleWithTags("Calm Corner", time.Now(), "mindfulness")
	c.Description = "a space for meditation and mindfulness"

	// Exact tag (3) + title miss + description hit (0.5).
	assert.InDelta(t, 3.5, ScoreCircle(&c, []string{"mindfulness"}), 0.001)

	// Substring both ways scores 2.
	sub := circleWithTags("S", time.Now(), "sleep hygiene")
	assert.InDelta(t, 2.0, ScoreCircle(&sub, []string{"sleep"}), 0.001)

	// Shared whitespace word scores 1.
	shared := circleWithTags("W", time.Now(), "mental health")
	assert.InDelta(t, 1.0, ScoreCircle(&shared, []string{"health anxiety"}), 0.001)

	// Title substring adds 1 independent of tags.
	titleOnly := circleWithTags("Grief and Loss", time.Now(), "support")
	assert.InDelta(t, 1.0, ScoreCircle(&titleOnly, []string{"grief"}), 0.001)

	// No overlap at all scores zero.
	assert.Zero(t, ScoreCircle(&sub, []string{"nutrition"}))
}

func TestMatchingIsCaseInsensitive(t *testing.T) {
	c := circleWithTags("C", time.Now(), "ANXIETY")
	assert.InDelta(t, 3.0, ScoreCircle(&c, []string{"anxiety"}), 0.001)
}

func TestNoInterestsFallsBackToRecency(t *testing.T) {
	base := time.Now().UTC()
	var circles []models.Circle
	for i := 0; i < 8; i++ {
		circles = append(circles, circleWithTags(
			string(rune('A'+i)), base.Add(time.Duration(i)*time.Hour), "tag"))
	}

	ranked := RankCircles(circles, nil)

	require.Len(t, ranked, MaxRecommendations)
	assert.Equal(t, []string{"H", "G", "F", "E", "D", "C"}, titles(ranked))
}

func TestBackfillByRecencyWithoutDuplicates(t *testing.T) {
	base := time.Now().UTC()
	scoredCircle := circleWithTags("Scored", base, "anxiety")
	others := []models.Circle{
		circleWithTags("N1", base.Add(1*time.Hour), "cooking"),
		circleWithTags("N2", base.Add(2*time.Hour), "hiking"),
		circleWithTags("N3", base.Add(3*time.Hour), "chess"),
		circleWithTags("N4", base.Add(4*time.Hour), "gardening"),
	}

	all := append([]models.Circle{scoredCircle}, others...)
	ranked := RankCircles(all, []string{"anxiety"})

	// 1 scored + 4 backfilled, no duplicates.
	require.Len(t, ranked, 5)
	assert.Equal(t, "Scored", ranked[0].Title)
	assert.Equal(t, []string{"Scored", "N4", "N3", "N2", "N1"}, titles(ranked))

	seen := map[string]bool{}
	for _, c := range ranked {
		assert.False(t, seen[c.ID.Hex()], "duplicate circle %s", c.Title)
		seen[c.ID.Hex()] = true
	}
}

func TestZeroScoreCirclesExcludedWhenEnoughMatch(t *testing.T) {
	base := time.Now().UTC()
	circles := []models.Circle{
		circleWithTags("M1", base, "anxiety"),
		circleWithTags("M2", base, "anxiety support"),
		circleWithTags("M3", base, "social anxiety"),
		circleWithTags("Unrelated", base.Add(time.Hour), "woodworking"),
	}

	ranked := RankCircles(circles, []string{"anxiety"})

	require.Len(t, ranked, 3)
	assert.NotContains(t, titles(ranked), "Unrelated")
}

func TestStableOrderOnTies(t *testing.T) {
	now := time.Now().UTC()
	a := circleWithTags("First", now, "sleep")
	b := circleWithTags("Second", now, "sleep")
	c := circleWithTags("Third", now, "sleep")

	ranked := RankCircles([]models.Circle{a, b, c}, []string{"sleep"})

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"First", "Second", "Third"}, titles(ranked))
}

func TestCapAtSixScored(t *testing.T) {
	base := time.Now().UTC()
	var circles []models.Circle
	for i := 0; i < 10; i++ {
		circles = append(circles, circleWithTags(string(rune('A'+i)), base, "anxiety"))
	}

	ranked := RankCircles(circles, []string{"anxiety"})
	assert.Len(t, ranked, MaxRecommendations)
}

func TestInterestWhitespaceTrimmed(t *testing.T) {
	c := circleWithTags("C", time.Now(), "anxiety")
	ranked := RankCircles([]models.Circle{c}, []string{"  Anxiety  "})
	require.Len(t, ranked, 1)

	// Blank interests behave like none at all.
	ranked = RankCircles([]models.Circle{c}, []string{"   ", ""})
	assert.Len(t, ranked, 1)
}
