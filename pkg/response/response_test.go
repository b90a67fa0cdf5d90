package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sudooom.trivia/pkg/errors"
)

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	fn(c)
	return rec
}

func TestSuccess(t *testing.T) {
	rec := record(func(c *gin.Context) { Success(c, gin.H{"roomId": "ABCD"}) })
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
}

func TestErrorFromAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"not found", apperrors.ErrRoomNotFound, http.StatusNotFound, apperrors.CodeRoomNotFound},
		{"conflict", apperrors.ErrNameTaken, http.StatusConflict, apperrors.CodeNameTaken},
		{"bad request", apperrors.ErrInvalidParams.Wrap(errors.New("x")), http.StatusBadRequest, apperrors.CodeInvalidParams},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeServerError},
		{"warming up", apperrors.ErrNotReady, http.StatusServiceUnavailable, apperrors.CodeNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record(func(c *gin.Context) { ErrorFromAppError(c, tt.err) })
			assert.Equal(t, tt.status, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}
