package util

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/content"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = logger.Initialize("error", "")
	m.Run()
}

func serve(handler gin.HandlerFunc) (*httptest.ResponseRecorder, ErrorResponse) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondError(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		RespondError(c, fmt.Errorf("load: %w", store.ErrNotFound))
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body.Code)

	w, body = serve(func(c *gin.Context) { RespondError(c, content.ErrForbidden) })
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", body.Code)

	w, body = serve(func(c *gin.Context) { RespondError(c, fmt.Errorf("boom")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Message)
}

func TestGetUserIDFromContext(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		_, ok := GetUserIDFromContext(c)
		assert.False(t, ok)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", body.Code)

	w, _ = serve(func(c *gin.Context) {
		c.Set(ContextUserID, "u1")
		id, ok := GetUserIDFromContext(c)
		require.True(t, ok)
		assert.Equal(t, "u1", id)
		c.AbortWithStatus(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBindError(t *testing.T) {
	var fe *validation.FieldError

	require.ErrorAs(t, BindError(io.EOF), &fe)
	assert.Equal(t, "body", fe.Field)

	type req struct {
		Text string `binding:"required"`
	}
	err := BindError(validation.New().Struct(req{}))
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "text", fe.Field)

	require.ErrorAs(t, BindError(fmt.Errorf("invalid character")), &fe)
	assert.Equal(t, "invalid request body", fe.Message)
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 3, ParseInt("3", 1))
	assert.Equal(t, 1, ParseInt("x", 1))
	_, err := ParseInt64Param("nope")
	assert.Error(t, err)
}
