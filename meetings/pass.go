package meetings

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"convene/models"
	"convene/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

func passSecret() []byte {
	if s := os.Getenv("PASS_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("change-me")
}

// passPayload signs meeting coordinates for on-site check-in scanners:
// meetingID|table|slot|timestamp|signature.
func passPayload(m *models.Meeting) string {
	data := fmt.Sprintf("%s|%s|%s|%d", m.ID, m.TableAssigned, m.TimeSlot, time.Now().Unix())
	h := hmac.New(sha256.New, passSecret())
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// MeetingPass renders a printable PDF pass for an accepted meeting, with a
// signed QR code for the check-in desk.
func MeetingPass(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meetingID := ps.ByName("meetingid")

	m, err := store.GetMeeting(r.Context(), meetingID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if m.Status != models.MeetingStatusAccepted {
		utils.RespondWithError(w, http.StatusConflict, "meeting is not accepted")
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	if userID != "" && !m.HasParticipant(userID) {
		utils.RespondWithError(w, http.StatusForbidden, "not a participant of this meeting")
		return
	}

	qrPNG, err := qrcode.Encode(passPayload(m), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Meeting Pass")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Meeting ID: %s", m.ID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Table: %s", m.TableAssigned))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Time: %s", m.TimeSlot))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=meeting-"+m.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
