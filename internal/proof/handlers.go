package proof

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"marketstall/internal/api"
	"marketstall/internal/booking"
)

const formField = "payment_proof"

type Attacher interface {
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	AttachPaymentProof(ctx context.Context, bookingID, proofRef string) (*booking.Booking, error)
}

type Storage interface {
	Save(bookingID, filename string, r io.Reader) (string, error)
	Remove(ref string) error
	MaxBytes() int64
}

type Handlers struct {
	Store    Storage
	Bookings Attacher
	Logger   *zap.Logger
}

// Upload accepts a multipart image for a booking and moves it to
// pending_verification. The stored file is removed again if the booking
// refuses the transition.
func (h Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing id")
		return
	}
	if _, err := h.Bookings.GetBooking(r.Context(), id); err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}

	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.Store.MaxBytes()+64<<10)
	file, header, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payment proof is too large")
			return
		}
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "payment_proof file is required")
		return
	}
	defer file.Close()

	ref, err := h.Store.Save(id, header.Filename, file)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}

	b, err := h.Bookings.AttachPaymentProof(r.Context(), id, ref)
	if err != nil {
		if rmErr := h.Store.Remove(ref); rmErr != nil {
			h.Logger.Warn("orphaned payment proof", zap.String("ref", ref), zap.Error(rmErr))
		}
		api.WriteServiceError(w, h.Logger, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}
