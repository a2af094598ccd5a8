package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// BuildSystemPrompt composes the fixed instruction set for PBB-P2 arrears extraction.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a data-entry assistant for a regional tax office. The attached document is a scanned PBB-P2 (land and building tax) statement.",
		"Return ONLY JSON that matches the provided response schema: an array with one object per taxpayer/object found in the document.",
		"For each object, identify the taxpayer name (Nama Wajib Pajak) into 'nama' and the tax object number (NOP) into 'nop', copied exactly as printed.",
		"For 'tunggakan', add one entry per tax year listed in the 'Kurang Bayar' (amount due) column: 'tahun' is the year, 'jumlah' is the amount as a plain number without currency symbols or thousand separators.",
		"If the amount due for a listed year is explicitly 0, include it with 'jumlah' 0.",
		"NEVER invent years that are not present in the document and never fill missing years with 0.",
		"Ignore totals, penalties (denda) and payment columns; only the amount due per year counts.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt names the attached document and the tracked window.
func BuildUserPrompt(doc Document, years entity.YearRange) string {
	var b strings.Builder
	if name := strings.TrimSpace(doc.Name); name != "" {
		b.WriteString("Filename: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Tracked tax years: %d to %d (other years may still be reported; they are filtered later).\n", years.Start, years.End))
	b.WriteString("Extract the arrears data from the attached document.")
	return b.String()
}
