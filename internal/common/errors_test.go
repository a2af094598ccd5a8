package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExtractionError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantQuota bool
		wantCode  string
		wantHTTP  int
	}{
		{
			name:      "429 in message is quota",
			err:       errors.New("googleapi: Error 429: Resource has been exhausted"),
			wantQuota: true,
			wantCode:  CodeQuotaExceeded,
			wantHTTP:  http.StatusTooManyRequests,
		},
		{
			name:     "malformed response is processing failure",
			err:      fmt.Errorf("decode: %w", ErrMalformedResponse),
			wantCode: CodeProcessingFailed,
			wantHTTP: http.StatusBadGateway,
		},
		{
			name:     "anything else is processing failure",
			err:      errors.New("permission denied"),
			wantCode: CodeProcessingFailed,
			wantHTTP: http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyExtractionError(tt.err)
			assert.Equal(t, tt.wantQuota, errors.Is(got, ErrQuotaExceeded))
			assert.Equal(t, !tt.wantQuota, errors.Is(got, ErrProcessingFailed))
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.wantCode, ErrorCode(got))
			assert.Equal(t, tt.wantHTTP, HTTPStatus(got))
		})
	}
	assert.NoError(t, ClassifyExtractionError(nil))
}

func TestClassifyExtractionError_Idempotent(t *testing.T) {
	once := ClassifyExtractionError(errors.New("Error 503"))
	twice := ClassifyExtractionError(once)
	assert.Same(t, once, twice)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, MsgQuotaExceeded, UserMessage(fmt.Errorf("x: %w", ErrQuotaExceeded)))
	assert.Equal(t, MsgProcessingFailed, UserMessage(fmt.Errorf("x: %w", ErrProcessingFailed)))
	assert.Equal(t, "bad files", UserMessage(NewAppError(CodeInvalidInput, "bad files", ErrInvalidInput)))
	assert.Equal(t, "batch x: resource not found", UserMessage(fmt.Errorf("batch x: %w", ErrNotFound)))
}

func TestUserMessage_HidesInternalErrors(t *testing.T) {
	err := fmt.Errorf("commit records: %w: pq: relation \"tax_records\" does not exist", ErrDatabase)
	assert.Equal(t, MsgInternal, UserMessage(err))
	assert.Equal(t, MsgInternal, UserMessage(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestHTTPStatus_AppErrorCode(t *testing.T) {
	err := NewAppError(CodeInvalidInput, "no files", ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("batch: %w", ErrNotFound)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrQueueClosed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestValidatorError(t *testing.T) {
	v := NewValidator().
		Field("id", "nope", UUID).
		Field("note", " ", Required, MaxLength(3))
	err := v.Error()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))

	var fe *FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe.Fields, 2)
	assert.Equal(t, "id", fe.Fields[0].Field)
	assert.Equal(t, "note", fe.Fields[1].Field)
	assert.Equal(t, v.Errors(), fe.Fields)

	ok := NewValidator().Field("id", "6f1c1c7e-3f4a-4a9e-9d7e-2a8f0c6b9e11", UUID)
	assert.NoError(t, ok.Error())
	assert.False(t, IsValidationError(errors.New("boom")))
}
