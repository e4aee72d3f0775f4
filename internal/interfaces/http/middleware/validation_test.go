package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/syncbridge/internal/interfaces/http/dto"
)

type bindTarget struct {
	Action string `json:"action" binding:"required,max=8"`
	Target string `json:"target" binding:"omitempty,max=4"`
}

func newBindRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID(), BodyLimit(256))
	router.POST("/bind", func(c *gin.Context) {
		var req bindTarget
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func postBind(t *testing.T, router *gin.Engine, body string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHandleBindError_Validation(t *testing.T) {
	router := newBindRouter()
	w, resp := postBind(t, router, `{"target":"too-long"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	fields := map[string]string{}
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", fields["action"])
	assert.Equal(t, "Must be at most 4 characters", fields["target"])
}

func TestHandleBindError_InvalidJSON(t *testing.T) {
	router := newBindRouter()
	w, resp := postBind(t, router, `{"action":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, []string{dto.ErrCodeInvalidJSON, dto.ErrCodeBadRequest}, resp.Error.Code)
}

func TestHandleBindError_WrongType(t *testing.T) {
	router := newBindRouter()
	w, resp := postBind(t, router, `{"action":5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
}

func TestHandleBindError_Valid(t *testing.T) {
	router := newBindRouter()
	w, _ := postBind(t, router, `{"action":"ok"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
