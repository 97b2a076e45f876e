package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func TestRespondErrorUsesMapping(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("wrapped: %w", errBusy), ErrorMapping{Err: errBusy, Status: http.StatusConflict, Title: "Busy"})

	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, ProblemContentType, rr.Header().Get("Content-Type"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "Busy", body.Title)
	require.Equal(t, "wrapped: busy", body.Detail)
}

func TestRespondErrorHidesUnmapped(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("password=secret"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "secret")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Year int `json:"year"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"year":2024,"extra":1}`))
	require.Error(t, DecodeJSON(req, &target))
}
