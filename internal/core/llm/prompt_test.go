package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

func TestBuildSystemPrompt(t *testing.T) {
	p := BuildSystemPrompt()
	assert.Contains(t, p, "Kurang Bayar")
	assert.Contains(t, p, "NOP")
	assert.Contains(t, p, "NEVER invent years")
	assert.Contains(t, p, "explicitly 0")
}

func TestBuildUserPrompt(t *testing.T) {
	p := BuildUserPrompt(Document{Name: "sppt_2021.pdf"}, entity.YearRange{Start: 2015, End: 2024})
	assert.Contains(t, p, "Filename: sppt_2021.pdf")
	assert.Contains(t, p, "2015 to 2024")

	p = BuildUserPrompt(Document{}, entity.YearRange{Start: 2015, End: 2024})
	assert.NotContains(t, p, "Filename:")
}

func TestBuildResponseSchema(t *testing.T) {
	s := BuildResponseSchema()
	assert.Equal(t, genai.TypeArray, s.Type)
	item := s.Items
	assert.Equal(t, genai.TypeObject, item.Type)
	assert.ElementsMatch(t, []string{"nama", "nop", "tunggakan"}, item.Required)

	entry := item.Properties["tunggakan"].Items
	assert.Equal(t, genai.TypeInteger, entry.Properties["tahun"].Type)
	assert.Equal(t, genai.TypeNumber, entry.Properties["jumlah"].Type)
}
