package procedure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cliniops/cliniops/internal/platform/artifact"
)

func newHandlerFixture(repo *fakeRepo, store artifact.Store) *Handler {
	saga, _, _ := newTestSaga(repo, &fakeLedger{stock: map[uuid.UUID]float64{}}, store)
	return NewHandler(saga, artifact.DefaultMaxSize)
}

func newEchoContext(method, target string, body *bytes.Buffer, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func setProcedureParams(c echo.Context, treatmentID, procedureID uuid.UUID) {
	c.SetParamNames("treatmentId", "id")
	c.SetParamValues(treatmentID.String(), procedureID.String())
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename, fileType, fileBody string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
		header.Set("Content-Type", fileType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte(fileBody)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf, w.FormDataContentType()
}

func TestCreateHandlerRejectsUnknownKind(t *testing.T) {
	h := newHandlerFixture(newFakeRepo(), artifact.NewMemoryStore())

	body := bytes.NewBufferString(`{"kind":"surgical","name":"X"}`)
	c, _ := newEchoContext(http.MethodPost, "/", body, echo.MIMEApplicationJSON)
	c.SetParamNames("treatmentId")
	c.SetParamValues(uuid.New().String())

	err := h.Create(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetHandlerNotFound(t *testing.T) {
	h := newHandlerFixture(newFakeRepo(), artifact.NewMemoryStore())

	c, _ := newEchoContext(http.MethodGet, "/", nil, "")
	setProcedureParams(c, uuid.New(), uuid.New())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestExecuteHandlerStagesAttachment(t *testing.T) {
	repo := newFakeRepo()
	treatmentID := uuid.New()
	procID := repo.seed(treatmentID)
	store := artifact.NewMemoryStore()
	h := newHandlerFixture(repo, store)

	body, contentType := multipartBody(t,
		map[string]string{"result": "healed", "consumed_products": "[]"},
		FieldBeforeImage, "before.png", "image/png", "png-bytes")
	c, rec := newEchoContext(http.MethodPost, "/", body, contentType)
	setProcedureParams(c, treatmentID, procID)

	if err := h.Execute(c); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.Len() != 1 {
		t.Errorf("stored artifacts = %d, want 1", store.Len())
	}

	var detail Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if detail.Status != StatusExecuted {
		t.Errorf("status = %q, want %q", detail.Status, StatusExecuted)
	}
	if detail.BeforeImage == nil || !strings.HasPrefix(*detail.BeforeImage, "memory://") {
		t.Errorf("before image = %v, want staged reference", detail.BeforeImage)
	}
}

func TestExecuteHandlerRejectsDisallowedType(t *testing.T) {
	repo := newFakeRepo()
	treatmentID := uuid.New()
	procID := repo.seed(treatmentID)
	store := artifact.NewMemoryStore()
	h := newHandlerFixture(repo, store)

	body, contentType := multipartBody(t, nil,
		FieldBeforeImage, "notes.txt", "text/plain", "not an image")
	c, _ := newEchoContext(http.MethodPost, "/", body, contentType)
	setProcedureParams(c, treatmentID, procID)

	err := h.Execute(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("nothing should be staged for a rejected upload")
	}
}

func TestUpdateHandlerOmittedProductsFieldStaysNil(t *testing.T) {
	repo := newFakeRepo()
	treatmentID := uuid.New()
	procID := repo.seed(treatmentID)
	repo.items[procID] = []ConsumedProductInput{{ProductID: uuid.New(), Quantity: 1}}
	h := newHandlerFixture(repo, artifact.NewMemoryStore())

	body, contentType := multipartBody(t, map[string]string{"name": "Renamed"}, "", "", "", "")
	c, rec := newEchoContext(http.MethodPut, "/", body, contentType)
	setProcedureParams(c, treatmentID, procID)

	if err := h.Update(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.replaces != 0 {
		t.Errorf("replaces = %d, want 0 when products field omitted", repo.replaces)
	}
	if len(repo.items[procID]) != 1 {
		t.Error("prior consumption must survive")
	}
}

func TestUpdateHandlerEmptyProductsClears(t *testing.T) {
	repo := newFakeRepo()
	treatmentID := uuid.New()
	procID := repo.seed(treatmentID)
	repo.items[procID] = []ConsumedProductInput{{ProductID: uuid.New(), Quantity: 1}}
	h := newHandlerFixture(repo, artifact.NewMemoryStore())

	body, contentType := multipartBody(t, map[string]string{"products": "[]"}, "", "", "", "")
	c, _ := newEchoContext(http.MethodPut, "/", body, contentType)
	setProcedureParams(c, treatmentID, procID)

	if err := h.Update(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(repo.items[procID]) != 0 {
		t.Error("explicit empty products array must clear consumption")
	}
}
