package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"mime"
	"net/http"
	"strings"

	"geotrace"
	"geotrace/internal/metrics"
	"geotrace/internal/models"
	"geotrace/internal/service"

	"github.com/gin-gonic/gin"
)

// Client-facing messages. Internal error text is never placed here.
const (
	errUnsupportedMedia = "unsupported media type: Content-Type must be application/json"
	errNoData           = "no data provided"
	errMalformedJSON    = "malformed JSON body"
	errNotAnObject      = "body must be a JSON object"
	errTooLarge         = "payload too large"
	errMissingFields    = "missing required fields"
	errInvalidFields    = "invalid field values"
	errPersist          = "failed to store telemetry record"

	headerReceiptID        = "X-Receipt-ID"
	headerReceiptSignature = "X-Receipt-Signature"
)

// TelemetryRequest documents the accepted body. Any extra keys are stored as sent.
type TelemetryRequest struct {
	Latitude  float64 `json:"latitude" example:"40.7128"`
	Longitude float64 `json:"longitude" example:"-74.006"`
	Timestamp string  `json:"timestamp" example:"2023-01-01T12:00:00Z"`
	DeviceID  string  `json:"device_id,omitempty" example:"truck-17"`
}

// respond writes obj as JSON, indented when the profile asks for it.
func (h *Handler) respond(c *gin.Context, code int, obj any) {
	if h.cfg.PrettyJSON {
		c.IndentedJSON(code, obj)
		return
	}
	c.JSON(code, obj)
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err, "request_id", c.GetString(ctxKeyRequestID)}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	resp := geotrace.ErrorResponse{Error: userMsg}
	if h.cfg.ExposeErrors && err != nil {
		resp.Detail = err.Error()
	}
	h.respond(c, httpCode, resp)
}

// isJSONContentType accepts application/json and any +json media type.
func isJSONContentType(header string) bool {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// @Summary      Ingest a telemetry record
// @Description  Writes the record to the canonical file and a timestamped backup.
// @Tags         telemetry
// @Accept       json
// @Produce      json
// @Param        body  body      TelemetryRequest  true  "Telemetry record"
// @Success      201   {object}  geotrace.SuccessResponse
// @Failure      400   {object}  geotrace.ErrorResponse
// @Failure      413   {object}  geotrace.ErrorResponse
// @Failure      415   {object}  geotrace.ErrorResponse
// @Failure      500   {object}  geotrace.ErrorResponse
// @Router       /api/v1/data [post]
func (h *Handler) receiveData(c *gin.Context) {
	if !isJSONContentType(c.GetHeader("Content-Type")) {
		h.metrics.RecordIngest(metrics.ResultRejected)
		h.respond(c, http.StatusUnsupportedMediaType, geotrace.ErrorResponse{Error: errUnsupportedMedia})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxContentLength)
	rec, err := service.DecodeRecord(c.Request.Body)
	if err != nil {
		h.metrics.RecordIngest(metrics.ResultRejected)
		h.rejectBody(c, err)
		return
	}

	receipt, err := h.services.Ingest(c.Request.Context(), rec)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.log.Infow("telemetry_rejected", "missing", verr.Missing, "invalid", verr.Invalid, "request_id", c.GetString(ctxKeyRequestID))
			msg := errMissingFields
			if len(verr.Missing) == 0 {
				msg = errInvalidFields
			}
			h.respond(c, http.StatusBadRequest, geotrace.ErrorResponse{Error: msg, Missing: verr.Missing, Invalid: verr.Invalid})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errPersist, "telemetry_save_failed", err, "device_id", rec.DeviceID())
		return
	}

	c.Header(headerReceiptID, receipt.ID)
	if sig := h.signReceipt(receipt.ID); sig != "" {
		c.Header(headerReceiptSignature, sig)
	}
	h.respond(c, http.StatusCreated, geotrace.SuccessResponse{
		Status:   geotrace.StatusSuccess,
		Received: map[string]any(rec),
	})
}

// signReceipt returns the hex HMAC-SHA256 of id under the secret key, or ""
// when no key is configured.
func (h *Handler) signReceipt(id string) string {
	if h.cfg.SecretKey == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(h.cfg.SecretKey))
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// rejectBody maps a decoding failure to its 4xx response.
func (h *Handler) rejectBody(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.respond(c, http.StatusRequestEntityTooLarge, geotrace.ErrorResponse{Error: errTooLarge})
	case errors.Is(err, service.ErrEmptyRecord):
		h.respond(c, http.StatusBadRequest, geotrace.ErrorResponse{Error: errNoData, Missing: models.RequiredFields})
	case errors.Is(err, service.ErrNotAnObject):
		h.respond(c, http.StatusBadRequest, geotrace.ErrorResponse{Error: errNotAnObject})
	case errors.Is(err, service.ErrMalformedJSON):
		h.respond(c, http.StatusBadRequest, geotrace.ErrorResponse{Error: errMalformedJSON})
	default:
		h.logAndJSONError(c, http.StatusBadRequest, errMalformedJSON, "telemetry_body_read_failed", err)
	}
}
