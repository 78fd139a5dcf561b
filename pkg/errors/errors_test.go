package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsCodeMessageAndStack(t *testing.T) {
	err := New(ErrCodeWorkerSpawn, "cannot start worker")

	assert.Equal(t, ErrCodeWorkerSpawn, err.Code)
	assert.Equal(t, "cannot start worker", err.Message)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "[WRK_001] cannot start worker", err.Error())
}

func TestError_IncludesDetailWhenSet(t *testing.T) {
	err := New(ErrCodeTaskUnknown, "unknown task").WithDetail("task_id=frobnicate")
	assert.Equal(t, "[WRK_005] unknown task: task_id=frobnicate", err.Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestWrap_PreservesChainForErrorsIs(t *testing.T) {
	sentinel := stderrors.New("exit status 137")
	wrapped := Wrap(sentinel, ErrCodeWorkerRuntime, "worker failed")

	require.Error(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, sentinel))
	assert.Equal(t, sentinel, wrapped.Unwrap())
}

func TestWrap_UnknownCodePreservesOriginalClassification(t *testing.T) {
	inner := New(ErrCodeEmbeddingFailed, "embedding backend down")
	outer := Wrap(inner, CodeUnknown, "retrieval failed")

	assert.Equal(t, ErrCodeEmbeddingFailed, outer.Code)
}

func TestIsCode_TraversesWrappedChain(t *testing.T) {
	err := fmt.Errorf("handler: %w", Wrap(New(ErrCodeWorkerTimeout, "timed out"), ErrCodeInternal, "invoke failed"))

	assert.True(t, IsCode(err, ErrCodeWorkerTimeout))
	assert.True(t, IsCode(err, ErrCodeInternal))
	assert.False(t, IsCode(err, ErrCodeWorkerSpawn))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeGenerationFailed, GetCode(New(ErrCodeGenerationFailed, "llm down")))
}

func TestIsExternalDependency(t *testing.T) {
	assert.True(t, IsExternalDependency(New(ErrCodeEmbeddingFailed, "down")))
	assert.True(t, IsExternalDependency(New(ErrCodeWebSearchFailed, "down")))
	assert.False(t, IsExternalDependency(New(ErrCodeValidation, "bad input")))
}

func TestIsValidation_DistinguishesInputProblems(t *testing.T) {
	assert.True(t, IsValidation(New(ErrCodeThresholdInvalid, "threshold out of range")))
	assert.True(t, IsValidation(InvalidParam("missing field")))
	assert.False(t, IsValidation(New(ErrCodeWorkerRuntime, "exit 1")))
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	base := New(ErrCodeRecordStoreLoad, "load failed")
	detailed := base.WithDetail("path=victims.csv")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "path=victims.csv", detailed.Detail)
	assert.Equal(t, base.Code, detailed.Code)
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusForCode(ErrCodeWorkerSpawn))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatusForCode(ErrCodeWorkerSaturated))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusForCode(ErrCodeThresholdInvalid))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(ErrorCode("BOGUS_999")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "WRK", ModuleForCode(ErrCodeWorkerRuntime))
	assert.Equal(t, "KB", ModuleForCode(ErrCodeGenerationFailed))
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeValidation))
}
