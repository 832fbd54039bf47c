package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/gin-gonic/gin"
)

// bindAndValidate decodes the JSON body into req and runs struct validation,
// answering 400 itself when either fails.
func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}
	return v, true
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" parameter")
	return nil, false
}
