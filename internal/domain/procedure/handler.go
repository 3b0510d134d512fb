package procedure

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cliniops/cliniops/internal/platform/artifact"
	"github.com/cliniops/cliniops/internal/platform/auth"
	"github.com/cliniops/cliniops/pkg/pagination"
)

type Handler struct {
	saga      *Saga
	maxUpload int64
}

func NewHandler(saga *Saga, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = artifact.DefaultMaxSize
	}
	return &Handler{saga: saga, maxUpload: maxUpload}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "physician", "nurse")

	g := api.Group("/treatments/:treatmentId/procedures", role)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/execute", h.Execute)
}

func (h *Handler) Create(c echo.Context) error {
	treatmentID, err := uuid.Parse(c.Param("treatmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid treatment id")
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	detail, err := h.saga.Create(c.Request().Context(), treatmentID, req)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) Get(c echo.Context) error {
	treatmentID, procedureID, err := pathIDs(c)
	if err != nil {
		return err
	}
	detail, err := h.saga.Get(c.Request().Context(), treatmentID, procedureID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) List(c echo.Context) error {
	treatmentID, err := uuid.Parse(c.Param("treatmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid treatment id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.saga.List(c.Request().Context(), treatmentID, pg.Limit, pg.Offset)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	treatmentID, procedureID, err := pathIDs(c)
	if err != nil {
		return err
	}

	var req UpdateRequest
	var attachments []Attachment
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if err := bindUpdateForm(form, &req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		attachments, err = h.collectAttachments(form)
		if err != nil {
			return h.mapError(err)
		}
		defer closeAttachments(attachments)
	} else if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	detail, err := h.saga.Update(c.Request().Context(), treatmentID, procedureID, req, attachments)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) Execute(c echo.Context) error {
	treatmentID, procedureID, err := pathIDs(c)
	if err != nil {
		return err
	}

	var req ExecuteRequest
	var attachments []Attachment
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if err := bindExecuteForm(form, &req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		attachments, err = h.collectAttachments(form)
		if err != nil {
			return h.mapError(err)
		}
		defer closeAttachments(attachments)
	} else if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	detail, err := h.saga.Execute(c.Request().Context(), treatmentID, procedureID, req, attachments)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) mapError(err error) error {
	switch {
	case IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, artifact.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, artifact.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case IsConflict(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store contention, retry")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// collectAttachments validates and opens the before/after file parts. Every
// upload is checked against the size limit and media-type allow-list before
// any staging happens.
func (h *Handler) collectAttachments(form *multipart.Form) ([]Attachment, error) {
	var attachments []Attachment
	for _, field := range []string{FieldBeforeImage, FieldAfterImage} {
		files := form.File[field]
		if len(files) == 0 {
			continue
		}
		fh := files[0]
		contentType := fh.Header.Get("Content-Type")
		if err := artifact.ValidateUpload(contentType, fh.Size, h.maxUpload); err != nil {
			closeAttachments(attachments)
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			closeAttachments(attachments)
			return nil, err
		}
		attachments = append(attachments, Attachment{
			Field:       field,
			Filename:    fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Content:     f,
		})
	}
	return attachments, nil
}

func closeAttachments(attachments []Attachment) {
	for _, att := range attachments {
		if closer, ok := att.Content.(multipart.File); ok {
			closer.Close()
		}
	}
}

func pathIDs(c echo.Context) (treatmentID, procedureID uuid.UUID, err error) {
	treatmentID, err = uuid.Parse(c.Param("treatmentId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid treatment id")
	}
	procedureID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid procedure id")
	}
	return treatmentID, procedureID, nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// Form binding. Fields keep JSON presence semantics: an absent form value
// leaves the pointer nil, so "not supplied" and "supplied empty" stay
// distinct for arrays like products.

func bindUpdateForm(form *multipart.Form, req *UpdateRequest) error {
	req.Kind = formString(form, "kind")
	req.Code = formString(form, "code")
	req.Name = formString(form, "name")
	req.Area = formString(form, "area")
	req.Recommendations = formString(form, "recommendations")
	req.Result = formString(form, "result")
	req.BeforeImage = formString(form, FieldBeforeImage)
	req.AfterImage = formString(form, FieldAfterImage)

	var err error
	if req.ScheduledAt, err = formTime(form, "scheduled_at"); err != nil {
		return err
	}
	if req.PractitionerID, err = formUUID(form, "practitioner_id"); err != nil {
		return err
	}
	if req.Products, err = formItems(form, "products"); err != nil {
		return err
	}
	return nil
}

func bindExecuteForm(form *multipart.Form, req *ExecuteRequest) error {
	req.Result = formString(form, "result")
	req.BeforeImage = formString(form, FieldBeforeImage)
	req.AfterImage = formString(form, FieldAfterImage)

	var err error
	if req.ExecutedAt, err = formTime(form, "executed_at"); err != nil {
		return err
	}
	if req.PractitionerID, err = formUUID(form, "practitioner_id"); err != nil {
		return err
	}
	if req.ConsumedProducts, err = formItems(form, "consumed_products"); err != nil {
		return err
	}
	return nil
}

func formString(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func formTime(form *multipart.Form, key string) (*time.Time, error) {
	raw := formString(form, key)
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, key+" must be RFC 3339")
	}
	return &t, nil
}

func formUUID(form *multipart.Form, key string) (*uuid.UUID, error) {
	raw := formString(form, key)
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+key)
	}
	return &id, nil
}

func formItems(form *multipart.Form, key string) (*[]ConsumedProductInput, error) {
	raw := formString(form, key)
	if raw == nil {
		return nil, nil
	}
	items := []ConsumedProductInput{}
	if *raw != "" {
		if err := json.Unmarshal([]byte(*raw), &items); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, key+" must be a JSON array")
		}
	}
	return &items, nil
}
