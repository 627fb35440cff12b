package sessions

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/llm"
)

func newTestRouter(model *fakeModel) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryRepo(), analyses.NewAnalyzer(model, 0), model, Options{
		TTL:              time.Hour,
		MaxDocumentChars: 2000,
	})
	r := gin.New()
	NewHandler(svc, 1<<20).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return env
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	resp := doJSON(t, r, http.MethodPost, "/api/v1/sessions", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.Code)
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if created.SessionID == "" {
		t.Fatalf("expected sessionId")
	}
	return created.SessionID
}

func TestHandlerAnalyzeAndChat(t *testing.T) {
	model := newFakeModel()
	r := newTestRouter(model)
	id := createSession(t, r)
	base := "/api/v1/sessions/" + id

	resp := doJSON(t, r, http.MethodPost, base+"/document", gin.H{"text": contractText})
	if resp.Code != http.StatusOK {
		t.Fatalf("document: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var view SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if view.DocumentChars != len([]rune(contractText)) || view.DocumentPreview != contractText || view.Analysis != nil {
		t.Fatalf("unexpected session view %+v", view)
	}

	resp = doJSON(t, r, http.MethodPost, base+"/analyze", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var record map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	keyInfo, ok := record["key_information"].(map[string]any)
	if !ok || keyInfo["Total Fee"] != "$12,000" {
		t.Fatalf("unexpected key_information %v", record["key_information"])
	}
	for _, field := range []string{"risks", "clause_summaries", "overall_score"} {
		if s, _ := record[field].(string); s == "" {
			t.Fatalf("expected %s in record", field)
		}
	}

	resp = doJSON(t, r, http.MethodGet, base+"/analysis", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("analysis: expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodPost, base+"/chat", gin.H{"question": "What is the notice period?"})
	if resp.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var answer struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Answer != model.chatReply {
		t.Fatalf("unexpected answer %q", answer.Answer)
	}
}

func TestHandlerChatBeforeAnalysis(t *testing.T) {
	model := newFakeModel()
	r := newTestRouter(model)
	id := createSession(t, r)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/chat", gin.H{"question": "Fee?"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Message != NoAnalysisMessage {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
	if model.callCount() != 0 {
		t.Fatalf("expected zero model calls")
	}
}

func TestHandlerAnalyzeEmptyDocument(t *testing.T) {
	r := newTestRouter(newFakeModel())
	id := createSession(t, r)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/analyze", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Message != analyses.EmptyInputMessage {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/analysis", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without analysis, got %d", resp.Code)
	}
}

func TestHandlerChatProviderFailure(t *testing.T) {
	model := newFakeModel()
	model.chatErr = &llm.ProviderError{Provider: "azure-openai", StatusCode: 503, Reason: "unavailable"}
	r := newTestRouter(model)
	id := createSession(t, r)
	base := "/api/v1/sessions/" + id

	doJSON(t, r, http.MethodPost, base+"/document", gin.H{"text": contractText})
	doJSON(t, r, http.MethodPost, base+"/analyze", nil)

	resp := doJSON(t, r, http.MethodPost, base+"/chat", gin.H{"question": "Fee?"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if env := decodeError(t, resp); !llm.IsErrorText(env.Error.Message) {
		t.Fatalf("expected display text, got %q", env.Error.Message)
	}
}

func TestHandlerUploadNotPDF(t *testing.T) {
	r := newTestRouter(newFakeModel())
	id := createSession(t, r)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "contract.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte("this is not a pdf")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/document", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	if env := decodeError(t, resp); !strings.HasPrefix(env.Error.Message, "Failed to extract text from the PDF") {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestHandlerUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	model := newFakeModel()
	svc := NewService(NewMemoryRepo(), analyses.NewAnalyzer(model, 0), model, Options{TTL: time.Hour})
	r := gin.New()
	NewHandler(svc, 1024).RegisterRoutes(r.Group("/api/v1"))
	id := createSession(t, r)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "contract.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(bytes.Repeat([]byte("x"), 8<<10)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/document", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.Code, resp.Body.String())
	}
	if env := decodeError(t, resp); env.Error.Code != "upload_too_large" {
		t.Fatalf("unexpected code %q", env.Error.Code)
	}
}

func TestHandlerDocumentValidation(t *testing.T) {
	r := newTestRouter(newFakeModel())
	id := createSession(t, r)
	path := "/api/v1/sessions/" + id + "/document"

	if resp := doJSON(t, r, http.MethodPost, path, gin.H{"text": "  "}); resp.Code != http.StatusBadRequest {
		t.Fatalf("blank text: expected 400, got %d", resp.Code)
	}
	if resp := doJSON(t, r, http.MethodPost, path, gin.H{"text": strings.Repeat("a", 2001)}); resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized: expected 413, got %d", resp.Code)
	}
}

func TestHandlerUnknownAndDeletedSessions(t *testing.T) {
	r := newTestRouter(newFakeModel())

	if resp := doJSON(t, r, http.MethodGet, "/api/v1/sessions/nope", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.Code)
	}

	id := createSession(t, r)
	if resp := doJSON(t, r, http.MethodDelete, "/api/v1/sessions/"+id, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}
