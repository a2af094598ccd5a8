package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/retry"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// Extract implements llm.Extractor: one structured-output call per document,
// retried on 429/500/503, then parsed and normalized onto the configured years.
func (c *Client) Extract(ctx context.Context, doc llm.Document) ([]entity.TaxRecord, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := c.logger.With("req_id", rid, "file", doc.Name)

	log.Info("llm.extract.start",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"mime_type", doc.MIMEType,
		"format", constants.FormatForMIMEType(doc.MIMEType),
		"bytes", len(doc.Data),
		"years", c.cfg.Years.String(),
		"batch_id", common.BatchIDFromContext(ctx),
	)

	parts := []genai.Part{
		genai.Text(llm.BuildUserPrompt(doc, c.cfg.Years)),
		genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data},
	}

	policy := c.cfg.Retry
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("llm.extract.retry",
			"attempt", attempt, "error", err, "delay_ms", delay.Milliseconds(),
		)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}

	resp, err := retry.Do(ctx, policy, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.model.GenerateContent(callCtx, parts...)
	})
	if err != nil {
		log.Error("llm.extract.http_error",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if common.IsQuotaError(err) {
			return nil, fmt.Errorf("%w: %w", common.ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	raw, err := responseText(resp)
	if err != nil {
		log.Error("llm.extract.no_candidates", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	items, err := llm.ParseItems([]byte(raw))
	if err != nil {
		log.Error("llm.extract.decode_error",
			"error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	records := llm.Normalize(items, c.cfg.Years)

	attrs := []any{
		"items", len(items),
		"records", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		attrs = append(attrs, "total_tokens", resp.UsageMetadata.TotalTokenCount)
	}
	log.Info("llm.extract.ok", attrs...)
	return records, nil
}

func configureModel(m *genai.GenerativeModel, cfg Config) {
	m.SetTemperature(cfg.Temperature)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = llm.BuildResponseSchema()
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.BuildSystemPrompt())},
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates in gemini response", common.ErrMalformedResponse)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: empty gemini response", common.ErrMalformedResponse)
	}
	return sb.String(), nil
}
