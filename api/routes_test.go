package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func newPINRouter(pin string) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(pinMiddleware(pin))
	api.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet, http.MethodOptions)
	return r
}

func TestPINMiddlewareRejectsMissingPIN(t *testing.T) {
	router := newPINRouter("123456")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPINMiddlewareAcceptsCorrectPIN(t *testing.T) {
	router := newPINRouter("123456")

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-PIN", "123456")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPINMiddlewareRejectsWrongPIN(t *testing.T) {
	router := newPINRouter("123456")

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-PIN", "000000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPINMiddlewareDisabledWhenEmpty(t *testing.T) {
	router := newPINRouter("")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPINMiddlewareSkipsPreflight(t *testing.T) {
	router := newPINRouter("123456")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
