package llm

import "github.com/google/generative-ai-go/genai"

// BuildResponseSchema is the structured-output constraint sent to the model.
func BuildResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"nama": {Type: genai.TypeString, Description: "Taxpayer name (Nama Wajib Pajak)"},
				"nop":  {Type: genai.TypeString, Description: "Tax object number (NOP)"},
				"tunggakan": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"tahun":  {Type: genai.TypeInteger, Description: "Tax year"},
							"jumlah": {Type: genai.TypeNumber, Description: "Amount due (Kurang Bayar)"},
						},
						Required: []string{"tahun", "jumlah"},
					},
				},
			},
			Required: []string{"nama", "nop", "tunggakan"},
		},
	}
}

// BuildResponseJSONSchema mirrors BuildResponseSchema as a JSON-Schema map for local validation.
func BuildResponseJSONSchema() map[string]any {
	entry := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tahun":  map[string]any{"type": "integer"},
			"jumlah": map[string]any{"type": "number"},
		},
		"required": []string{"tahun", "jumlah"},
	}
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"nama":      map[string]any{"type": "string"},
			"nop":       map[string]any{"type": "string"},
			"tunggakan": map[string]any{"type": "array", "items": entry},
		},
		"required": []string{"nama", "nop", "tunggakan"},
	}
	return map[string]any{
		"type":  "array",
		"items": item,
	}
}
