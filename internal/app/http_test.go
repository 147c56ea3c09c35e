package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"resumeforge/api/internal/reconcile"
)

func newTestHandler(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService()
	server := NewHTTPServer(svc, "*")
	return server.Handler(), svc
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func signUpOverHTTP(t *testing.T, handler http.Handler) string {
	t.Helper()
	recorder := doRequest(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       "avery@example.com",
		"password":    "correct-horse",
		"displayName": "Avery Quinn",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("signup status = %d body=%s", recorder.Code, recorder.Body.String())
	}
	token, _ := decodeResponse(t, recorder)["accessToken"].(string)
	if token == "" {
		t.Fatal("signup returned no access token")
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := doRequest(t, handler, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := doRequest(t, handler, http.MethodGet, "/api/ready", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", recorder.Code, recorder.Body.String())
	}
	if ok, _ := decodeResponse(t, recorder)["ok"].(bool); !ok {
		t.Fatal("ready reported not ok")
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	handler, _ := newTestHandler(t)
	for _, path := range []string{"/api/resumes", "/api/templates", "/api/educations", "/api/skills"} {
		recorder := doRequest(t, handler, http.MethodGet, path, "", nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: status = %d", path, recorder.Code)
		}
	}

	recorder := doRequest(t, handler, http.MethodGet, "/api/resumes", "bogus-token", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token: status = %d", recorder.Code)
	}
}

func TestSignUpSignInFlow(t *testing.T) {
	handler, _ := newTestHandler(t)
	signUpOverHTTP(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       "avery@example.com",
		"password":    "correct-horse",
		"displayName": "Avery Quinn",
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: status = %d", recorder.Code)
	}
	if code, _ := decodeResponse(t, recorder)["code"].(string); code != "EMAIL_EXISTS" {
		t.Fatalf("duplicate signup code = %q", code)
	}

	recorder = doRequest(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email":    "avery@example.com",
		"password": "wrong-horse",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d", recorder.Code)
	}

	recorder = doRequest(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email":    "avery@example.com",
		"password": "correct-horse",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("signin: status = %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestSessionEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodGet, "/api/session", "", nil)
	if auth, _ := decodeResponse(t, recorder)["authenticated"].(bool); auth {
		t.Fatal("anonymous request reported authenticated")
	}

	token := signUpOverHTTP(t, handler)
	recorder = doRequest(t, handler, http.MethodGet, "/api/session", token, nil)
	payload := decodeResponse(t, recorder)
	if auth, _ := payload["authenticated"].(bool); !auth {
		t.Fatalf("authenticated request not recognized: %v", payload)
	}
	if payload["email"] != "avery@example.com" {
		t.Fatalf("email = %v", payload["email"])
	}
}

func TestResumeLifecycleOverHTTP(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := signUpOverHTTP(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/resumes", token, nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create: status = %d body=%s", recorder.Code, recorder.Body.String())
	}
	var created reconcile.Document
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created doc: %v", err)
	}
	resumePath := fmt.Sprintf("/api/resumes/%d", created.ID)

	recorder = doRequest(t, handler, http.MethodGet, "/api/resumes", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list: status = %d", recorder.Code)
	}
	if resumes, _ := decodeResponse(t, recorder)["resumes"].([]any); len(resumes) != 1 {
		t.Fatalf("list returned %d resumes, want 1", len(resumes))
	}

	recorder = doRequest(t, handler, http.MethodGet, resumePath, token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get: status = %d", recorder.Code)
	}

	recorder = doRequest(t, handler, http.MethodPut, resumePath, token, map[string]any{})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty save: status = %d body=%s", recorder.Code, recorder.Body.String())
	}
	if code, _ := decodeResponse(t, recorder)["code"].(string); code != "VALIDATION_ERROR" {
		t.Fatalf("empty save code = %q", code)
	}

	recorder = doRequest(t, handler, http.MethodPut, resumePath, token, payloadFromDoc(created))
	if recorder.Code != http.StatusOK {
		t.Fatalf("resave: status = %d body=%s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, handler, http.MethodDelete, resumePath, token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", recorder.Code)
	}

	recorder = doRequest(t, handler, http.MethodGet, resumePath, token, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d", recorder.Code)
	}
}

func TestCatalogEndpointsOverHTTP(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := signUpOverHTTP(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/educations", token, map[string]any{
		"school":    "State University",
		"degree":    "BSc",
		"startDate": "2018-09",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create education: status = %d body=%s", recorder.Code, recorder.Body.String())
	}
	created := decodeResponse(t, recorder)
	id := int64(created["id"].(float64))

	recorder = doRequest(t, handler, http.MethodPost, "/api/educations", token, map[string]any{
		"startDate": "2018-09",
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing school: status = %d", recorder.Code)
	}

	recorder = doRequest(t, handler, http.MethodGet, "/api/educations", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list educations: status = %d", recorder.Code)
	}
	if educations, _ := decodeResponse(t, recorder)["educations"].([]any); len(educations) != 1 {
		t.Fatalf("list returned %d educations, want 1", len(educations))
	}

	recorder = doRequest(t, handler, http.MethodDelete, fmt.Sprintf("/api/educations/%d", id), token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete education: status = %d", recorder.Code)
	}
	recorder = doRequest(t, handler, http.MethodDelete, fmt.Sprintf("/api/educations/%d", id), token, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("delete missing education: status = %d", recorder.Code)
	}
}

func TestRenderEndpointsWithoutRenderer(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := signUpOverHTTP(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/resumes", token, nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", recorder.Code)
	}
	var created reconcile.Document
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	recorder = doRequest(t, handler, http.MethodPost, fmt.Sprintf("/api/resumes/%d/render", created.ID), token, nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("render without renderer: status = %d", recorder.Code)
	}
}
