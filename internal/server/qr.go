package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/playperu/escaperoom/internal/escape"
)

const qrSize = 320

// roomURL is the display address printed on a room's door.
func roomURL(r *http.Request, publicURL string, room int) string {
	base := strings.TrimRight(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/room/" + strconv.Itoa(room)
}

// handleRoomQR renders a PNG QR code linking to a room's display.
func handleRoomQR(publicURL string, total int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err == nil {
			err = escape.ValidateRoomNumber(room, total)
		}
		if err != nil {
			writeErr(w, logger, err)
			return
		}

		png, err := qrcode.Encode(roomURL(r, publicURL, room), qrcode.Medium, qrSize)
		if err != nil {
			logger.Error("qr generation failed", "room", room, "error", err)
			writeError(w, http.StatusInternalServerError, "qr generation failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `inline; filename="room-`+strconv.Itoa(room)+`.png"`)
		_, _ = w.Write(png)
	}
}
