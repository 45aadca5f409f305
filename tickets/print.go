package tickets

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"matsuri/engine"
	"matsuri/globals"
	"matsuri/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// GenerateQRPayload returns the signed payload encoded on a printed
// ticket: attractionID|ticketID|userID|timestamp|signature. The door
// scanner recomputes the HMAC to spot forged printouts.
func GenerateQRPayload(attractionID, ticketID, userID string) string {
	data := fmt.Sprintf("%s|%s|%s|%d", attractionID, ticketID, userID, time.Now().Unix())

	h := hmac.New(sha256.New, globals.JwtSecret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s|%s", data, sig)
}

// VerifyQRPayload checks the signature on a scanned payload.
func VerifyQRPayload(payload string) bool {
	i := lastPipe(payload)
	if i < 0 {
		return false
	}
	data, sig := payload[:i], payload[i+1:]

	h := hmac.New(sha256.New, globals.JwtSecret)
	h.Write([]byte(data))
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}

func lastPipe(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '|' {
			return i
		}
	}
	return -1
}

// PrintTicket renders the caller's live queue ticket as a PDF with a
// signed QR code, for visitors who want a paper number.
func PrintTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	attractionID := ps.ByName("id")
	ticketID := ps.ByName("ticketId")

	a, err := engine.LoadAttraction(r.Context(), attractionID)
	if err != nil {
		utils.RespondWithError(w, engine.HTTPStatus(err), err.Error())
		return
	}
	t, found := engine.FindTicket(a, ticketID)
	if !found {
		utils.RespondWithError(w, http.StatusNotFound, "ticket "+ticketID)
		return
	}
	if t.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "not the ticket owner")
		return
	}

	qrPNG, err := qrcode.Encode(GenerateQRPayload(attractionID, ticketID, userID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	position, called, _ := engine.PositionOf(a, userID)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Queue Ticket")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 32)
	pdf.Cell(0, 16, "No. "+ticketID)
	pdf.Ln(20)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Attraction: %s", a.Name))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Group size: %d", t.Count))
	pdf.Ln(8)
	if called {
		pdf.Cell(0, 10, "Status: called - please come to the entrance")
	} else {
		pdf.Cell(0, 10, fmt.Sprintf("Groups ahead of you: %d", position))
	}
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=ticket-"+ticketID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
