package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquagest/apiserver/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("Campo requerido: email"), http.StatusBadRequest},
		{apperr.Conflict("El email ya está registrado"), http.StatusConflict},
		{apperr.Unauthorized("Usuario no autenticado"), http.StatusUnauthorized},
		{apperr.Forbidden("Permisos insuficientes"), http.StatusForbidden},
		{apperr.NotFound("Solicitud no encontrada"), http.StatusNotFound},
		{apperr.Storage("insert failed", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestWriteAppErrorHidesStorageCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/solicitudes", nil)

	writeAppError(rec, req, apperr.Storage("insert failed", errors.New("pq: connection refused")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, internalErrorMessage, body.Detail)
}

func TestWriteAppErrorUsesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/usuarios/registro", nil)

	writeAppError(rec, req, apperr.Validation("Email inválido"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Email inválido"}`, rec.Body.String())
}

func TestFlexibleInt(t *testing.T) {
	var v struct {
		ID flexibleInt `json:"id_punto"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id_punto":"3"}`), &v))
	assert.Equal(t, flexibleInt(3), v.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id_punto":7}`), &v))
	assert.Equal(t, flexibleInt(7), v.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id_punto":""}`), &v))
	assert.Equal(t, flexibleInt(0), v.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id_punto":"tres"}`), &v))
}

func TestPathID(t *testing.T) {
	r := chi.NewRouter()
	var got int
	var gotErr error
	r.Get("/solicitudes/{requestID}", func(w http.ResponseWriter, req *http.Request) {
		got, gotErr = pathID(req, "requestID")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/solicitudes/12", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, 12, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/solicitudes/0", nil))
	assert.EqualError(t, gotErr, "invalid requestID")
}
