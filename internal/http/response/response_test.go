package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/attrition-backend/internal/platform/apierr"
)

func TestRespondErrUsesAPIErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)

	RespondErr(c, apierr.NotFound("employee_not_found", errors.New("employee E9 not found")), http.StatusInternalServerError, "get_failed")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "employee_not_found" || env.Error.Message == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestRespondErrHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)

	RespondErr(c, errors.New("pq: connection refused"), http.StatusInternalServerError, "list_failed")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	var env ErrorEnvelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	if env.Error.Code != "list_failed" || env.Error.Message != "internal error" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if len(c.Errors) != 1 {
		t.Fatalf("expected error recorded on context")
	}
}
