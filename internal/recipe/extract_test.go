package recipe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marmitonHTML = `
<!DOCTYPE html>
<html>
<head><title>Tarte aux pommes</title></head>
<body>
	<h1 class="main-title">  Tarte aux
		pommes  </h1>
	<div class="recipe-description">Une <b>délicieuse</b> tarte &amp; facile</div>
	<ul>
		<li class="ingredient">200g farine</li>
		<li class="ingredient">3 pommes</li>
		<li class="ingredient">   </li>
		<li class="ingredient">sel</li>
	</ul>
	<ol class="recipe-step-list">
		<li>Préchauffer le four</li>
		<li>   </li>
		<li>Étaler la pâte</li>
		<li>Enfourner 30 minutes</li>
	</ol>
	<div class="recipe-image"><img src="" data-src="https://assets.marmiton.org/tarte.jpg"></div>
	<div class="recipe-infos__timmings">Préparation: 20 min Cuisson: 30 min</div>
	<div class="recipe-infos__level">Très facile</div>
	<div class="recipe-infos__quantity">6 personnes</div>
</body>
</html>`

const bareHTML = `
<!DOCTYPE html>
<html><body>
	<h1 class="c-recipe-title">Gratin dauphinois</h1>
	<ul class="c-recipe-ingredients"><li>1kg pommes de terre</li></ul>
	<ol class="c-recipe-steps"><li>Tout mettre au four</li></ol>
</body></html>`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	registry, err := NewRegistry()
	require.NoError(t, err)
	return NewExtractor(registry)
}

func TestExtractFromPage(t *testing.T) {
	extractor := newTestExtractor(t)

	doc, err := LoadHTML(marmitonHTML)
	require.NoError(t, err)

	rec, err := extractor.ExtractFromPage(doc, "https://www.marmiton.org/recettes/tarte-aux-pommes")
	require.NoError(t, err)

	assert.Equal(t, "Tarte aux pommes", rec.Title)
	assert.Equal(t, "Une délicieuse tarte & facile", rec.Description)
	assert.Equal(t, "www.marmiton.org", rec.SourceHost)
	assert.Equal(t, "https://www.marmiton.org/recettes/tarte-aux-pommes", rec.SourceURL)
	assert.Equal(t, "https://assets.marmiton.org/tarte.jpg", rec.ImageURL)
	assert.Equal(t, 20, rec.PrepTimeMinutes)
	assert.Equal(t, 30, rec.CookTimeMinutes)
	assert.Equal(t, DifficultyEasy, rec.Difficulty)
	assert.Equal(t, 6, rec.Servings)
	assert.False(t, rec.ScrapedAt.IsZero())

	require.Len(t, rec.Ingredients, 3)
	assert.Equal(t, "200g farine", rec.Ingredients[0].Name)
	assert.Equal(t, "200g", rec.Ingredients[0].Quantity)
	assert.Equal(t, "3 pommes", rec.Ingredients[1].Name)
	assert.Equal(t, "3", rec.Ingredients[1].Quantity)
	assert.Equal(t, "sel", rec.Ingredients[2].Name)
	assert.Equal(t, "", rec.Ingredients[2].Quantity)
}

func TestExtractStepsSequential(t *testing.T) {
	extractor := newTestExtractor(t)

	doc, err := LoadHTML(marmitonHTML)
	require.NoError(t, err)

	rec, err := extractor.ExtractFromPage(doc, "https://www.marmiton.org/recettes/tarte")
	require.NoError(t, err)

	// The empty candidate is dropped before numbering, so the sequence
	// stays 1..n with no gaps.
	require.Len(t, rec.Steps, 3)
	for i, step := range rec.Steps {
		assert.Equal(t, i+1, step.Number)
		assert.NotEmpty(t, step.Instruction)
	}
}

func TestExtractDefaults(t *testing.T) {
	extractor := newTestExtractor(t)

	doc, err := LoadHTML(bareHTML)
	require.NoError(t, err)

	rec, err := extractor.ExtractFromPage(doc, "https://www.750g.com/gratin")
	require.NoError(t, err)

	assert.Equal(t, DifficultyMedium, rec.Difficulty)
	assert.Equal(t, 4, rec.Servings)
	assert.Equal(t, 0, rec.PrepTimeMinutes)
	assert.Equal(t, 0, rec.CookTimeMinutes)
	assert.Equal(t, "", rec.ImageURL)
}

func TestExtractRequiresTitle(t *testing.T) {
	extractor := newTestExtractor(t)

	doc, err := LoadHTML(`<html><body><p>pas de recette ici</p></body></html>`)
	require.NoError(t, err)

	_, err = extractor.ExtractFromPage(doc, "https://www.marmiton.org/autre-page")
	assert.ErrorIs(t, err, ErrNoTitle)
}

func TestExtractFromPageUnsupportedSite(t *testing.T) {
	extractor := newTestExtractor(t)

	doc, err := LoadHTML(marmitonHTML)
	require.NoError(t, err)

	_, err = extractor.ExtractFromPage(doc, "https://example.com/recette")
	assert.ErrorIs(t, err, ErrNoAdapter)
	assert.True(t, errors.Is(err, ErrNoAdapter))
}

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"grams", "200g farine", "200g"},
		{"count", "3 pommes", "3"},
		{"fraction with unit", "1/2 l de lait", "1/2 l"},
		{"milliliters", "250 ml de crème", "250 ml"},
		{"no quantity", "sel", ""},
		{"leading spaces", "  2 oeufs", "2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractQuantity(tt.input))
		})
	}
}
