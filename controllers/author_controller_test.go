package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// 绑定失败在触达 Repo 之前就要拦下来
func TestCreateAuthor_RejectsBadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		body string
	}{
		{"missing_name", `{"bio":"writes about Go"}`},
		{"blank_name", `{"name":"   "}`},
		{"malformed_json", `{"name":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = newJSONRequest(http.MethodPost, "/api/authors", tc.body)

			NewAuthorController(&Srv{}).CreateAuthor(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdateAuthor_RejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newJSONRequest(http.MethodPut, "/api/authors/a-1", `{"name":`)

	NewAuthorController(&Srv{}).UpdateAuthor(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
