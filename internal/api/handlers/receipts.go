package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/gcs"
	"github.com/fblacp/scales/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxReceiptSize bounds an uploaded receipt image.
const MaxReceiptSize = 10 << 20

// ReceiptsHandler accepts receipt images and queues them for scanning.
type ReceiptsHandler struct {
	publisher jobs.Publisher
	storage   gcs.StorageService
	bucket    string
	log       zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler. Without storage or a
// bucket, images travel inside the job instead of through the bucket.
func NewReceiptsHandler(publisher jobs.Publisher, storage gcs.StorageService, bucket string, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{publisher: publisher, storage: storage, bucket: bucket, log: log}
}

// ScanReceipt handles POST /api/receipts/scan. The image is either the
// "image" field of a multipart form or the raw request body.
func (h *ReceiptsHandler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	image, mimeType, err := readImage(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.ScanReceiptJob{UserID: userID, MimeType: mimeType}
	if h.storage != nil && h.bucket != "" {
		object := fmt.Sprintf("receipts/%s/%s%s", userID, uuid.NewString(), extensionFor(mimeType))
		uri, err := h.storage.UploadBytes(ctx, h.bucket, object, image, mimeType)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to upload receipt")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload receipt")
			return
		}
		job.ImageURI = uri
	} else {
		job.Image = image
	}

	if err := h.publisher.PublishScanReceipt(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue scan job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue scan job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", userID).Str("image_uri", job.ImageURI).Msg("Receipt scan enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":    job.JobID,
		"status":    string(job.Status),
		"image_uri": job.ImageURI,
	})
}

func readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxReceiptSize)

	var (
		src      io.Reader = r.Body
		declared           = r.Header.Get("Content-Type")
	)
	if mediaType, _, _ := mime.ParseMediaType(declared); mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(MaxReceiptSize); err != nil {
			return nil, "", fmt.Errorf("invalid multipart form: %w", err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, "", fmt.Errorf("image field is required")
		}
		defer file.Close()
		src = file
		declared = header.Header.Get("Content-Type")
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", fmt.Errorf("could not read image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image is empty")
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		if mediaType, _, _ := mime.ParseMediaType(declared); strings.HasPrefix(mediaType, "image/") {
			mimeType = mediaType
		} else {
			return nil, "", fmt.Errorf("unsupported image type %s", mimeType)
		}
	}
	return data, mimeType, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
