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

	"github.com/newdim001/biz-pro/internal/shared"
)

func TestRespondErrorStatuses(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("amount: %w", shared.ErrValidation):         http.StatusBadRequest,
		fmt.Errorf("cash: %w", shared.ErrInsufficientFunds):    http.StatusUnprocessableEntity,
		fmt.Errorf("p: %w", shared.ErrInsufficientEntitlement): http.StatusUnprocessableEntity,
		fmt.Errorf("unit %w", shared.ErrNotFound):              http.StatusNotFound,
		shared.ErrDuplicateSubmission:                          http.StatusConflict,
		fmt.Errorf("pg: %w", shared.ErrPersistence):            http.StatusServiceUnavailable,
		ErrUnauthorized:     http.StatusUnauthorized,
		shared.ErrForbidden: http.StatusForbidden,
		errors.New("boom"):  http.StatusInternalServerError,
	}
	for err, status := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, err)
		require.Equal(t, status, rec.Code, err.Error())

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, status, body.Status)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dial tcp 10.0.0.1: secret"))
	require.NotContains(t, rec.Body.String(), "secret")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Amount string `json:"amount"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"1","extra":true}`))
	err := DecodeJSON(httptest.NewRecorder(), req, &target)
	require.ErrorIs(t, err, shared.ErrValidation)
}
