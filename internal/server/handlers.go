package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/async"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/summary"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/export"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/ingest"
)

type batchResponse struct {
	Batch   entity.Batch              `json:"batch"`
	Records []entity.TaxRecord        `json:"records,omitempty"`
	Summary *entity.ValidationSummary `json:"summary,omitempty"`
}

// handleCreateBatch accepts multipart "files" and runs them as one batch.
func (s *Server) handleCreateBatch(c *gin.Context) {
	ctx := c.Request.Context()
	logger := common.LoggerFromContext(ctx, s.logger)

	docs, err := readUploads(c)
	if err != nil {
		handleError(c, err)
		return
	}

	apiKey := ""
	if s.opts.AllowKeyHeader {
		apiKey = c.GetHeader(apiKeyHeader)
	}
	extractor, release, err := s.deps.Extractors.For(ctx, apiKey)
	if err != nil {
		handleError(c, common.NewAppError(common.CodeInvalidInput, "no API key available; supply one in the "+apiKeyHeader+" header", err))
		return
	}

	batchID := uuid.New()
	queued, _ := strconv.ParseBool(c.Query("async"))
	if queued {
		if s.deps.Queue == nil {
			handleError(c, common.NewAppError(common.CodeUnavailable, "async processing is not enabled", nil))
			return
		}
		batch, err := s.deps.Queue.Enqueue(ctx, asyncJob(batchID, docs, extractor, release, common.RequestIDFromContext(ctx)))
		if err != nil {
			release()
			handleError(c, err)
			return
		}
		logger.Info("batch.enqueued", "batch_id", batch.ID, "files", len(docs))
		c.Header("Location", "/v1/batches/"+batch.ID.String())
		c.JSON(http.StatusAccepted, batchResponse{Batch: batch})
		return
	}

	batch := entity.Batch{ID: batchID, Files: fileNames(docs), SubmittedAt: time.Now().UTC()}
	res, err := s.deps.Processor.ProcessBatch(ctx, core.BatchRequest{ID: batchID, Documents: docs, Extractor: extractor})
	release()
	if err != nil {
		handleError(c, err)
		return
	}
	batch.RecordCount = len(res.Records)

	all, err := s.deps.Store.List(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	sum := summary.Generate(all)
	c.JSON(http.StatusOK, batchResponse{Batch: finished(batch), Records: res.Records, Summary: &sum})
}

func (s *Server) handleGetBatch(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}
	if s.deps.Queue == nil {
		handleError(c, fmt.Errorf("batch %s: %w", id, common.ErrNotFound))
		return
	}
	b, ok := s.deps.Queue.Batch(id)
	if !ok {
		handleError(c, fmt.Errorf("batch %s: %w", id, common.ErrNotFound))
		return
	}
	if !b.Status.Terminal() {
		c.Header("Retry-After", "2")
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleListRecords(c *gin.Context) {
	recs, err := s.deps.Store.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "years": s.deps.Years})
}

func (s *Server) handleClearRecords(c *gin.Context) {
	n, err := s.deps.Store.Clear(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

func (s *Server) handleAddNote(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, fmt.Errorf("%w: invalid request body", common.ErrInvalidInput))
		return
	}
	v := common.NewValidator().Field("note", strings.TrimSpace(req.Note), common.Required, common.MaxLength(1000))
	if v.HasErrors() {
		handleError(c, v.Error())
		return
	}

	rec, err := s.deps.Store.AddNote(c.Request.Context(), id, strings.TrimSpace(req.Note))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleSummary(c *gin.Context) {
	recs, err := s.deps.Store.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary.Generate(recs))
}

func (s *Server) handleExport(f export.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, data, err := s.deps.Exporter.Export(c.Request.Context(), f)
		if err != nil {
			handleError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Data(http.StatusOK, f.ContentType(), data)
	}
}

// readUploads loads every multipart "files" part, in submission order.
func readUploads(c *gin.Context) ([]llm.Document, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: expected multipart form with files", common.ErrInvalidInput)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["files[]"]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", common.ErrInvalidInput)
	}

	docs := make([]llm.Document, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		doc, err := ingest.FromUpload(fh.Filename, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > ingest.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: %s is too large", common.ErrInvalidInput, fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, ingest.MaxDocumentBytes+1))
	if err != nil {
		return nil, errors.Join(common.ErrInvalidInput, err)
	}
	return data, nil
}

func asyncJob(id uuid.UUID, docs []llm.Document, ex llm.Extractor, release func(), requestID string) async.Job {
	return async.Job{BatchID: id, Documents: docs, Extractor: ex, Release: release, SubmittedAt: time.Now().UTC(), RequestID: requestID}
}

// pathID parses the UUID path parameter name.
func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	if v := common.NewValidator().Field(name, raw, common.UUID); v.HasErrors() {
		return uuid.Nil, v.Error()
	}
	return uuid.MustParse(raw), nil
}

func fileNames(docs []llm.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

func finished(b entity.Batch) entity.Batch {
	now := time.Now().UTC()
	b.Status = constants.BatchStatusSucceeded
	b.StartedAt = &b.SubmittedAt
	b.FinishedAt = &now
	return b
}
