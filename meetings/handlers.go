package meetings

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"convene/agenda"
	"convene/db"
	"convene/mq"
	"convene/scheduler"
	"convene/schedstore"
	"convene/utils"

	"github.com/julienschmidt/httprouter"
)

var (
	store  = schedstore.New(db.Client)
	engine = scheduler.New(store, mq.NewEmitter())
)

func CreateMeeting(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		EventID    string `json:"eventId"`
		ReceiverID string `json:"receiverId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	requesterID := utils.GetUserIDFromRequest(r)
	if requesterID == "" || body.EventID == "" || body.ReceiverID == "" {
		http.Error(w, "missing fields", http.StatusBadRequest)
		return
	}

	m, err := engine.CreateMeeting(r.Context(), body.EventID, requesterID, body.ReceiverID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"ok": true, "meeting": m})
}

// ListAvailableSlots returns the bookable slots for a meeting, grouped by
// time range. An empty list is a valid answer, not an error.
func ListAvailableSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meetingID := ps.ByName("meetingid")

	groups, err := engine.ListAvailableSlots(r.Context(), meetingID, time.Now())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"slots": groups})
}

// AcceptMeeting commits the meeting to a slot. With no unitId in the body
// the engine books the first available slot itself.
func AcceptMeeting(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meetingID := ps.ByName("meetingid")

	var body struct {
		UnitID string `json:"unitId"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body) // empty body means automatic mode
	}

	m, err := engine.AcceptMeeting(r.Context(), meetingID, body.UnitID, time.Now())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	agenda.Broadcast(m.EventID, utils.M{"type": "unit-occupied", "unitId": m.UnitID, "meetingId": m.ID})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "meeting": m})
}

func RejectMeeting(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meetingID := ps.ByName("meetingid")

	m, err := engine.RejectMeeting(r.Context(), meetingID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "meeting": m})
}

func CancelMeeting(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meetingID := ps.ByName("meetingid")

	m, err := engine.CancelMeeting(r.Context(), meetingID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	agenda.Broadcast(m.EventID, utils.M{"type": "unit-released", "meetingId": m.ID})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "meeting": m})
}

func RescheduleMeeting(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meetingID := ps.ByName("meetingid")

	var body struct {
		UnitID string `json:"unitId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UnitID == "" {
		http.Error(w, "missing unitId", http.StatusBadRequest)
		return
	}

	m, err := engine.RescheduleMeeting(r.Context(), meetingID, body.UnitID, time.Now())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	agenda.Broadcast(m.EventID, utils.M{"type": "meeting-rescheduled", "meetingId": m.ID, "unitId": m.UnitID})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "meeting": m})
}

func SwapMeetings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		MeetingIDA string `json:"meetingIdA"`
		MeetingIDB string `json:"meetingIdB"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MeetingIDA == "" || body.MeetingIDB == "" {
		http.Error(w, "missing meeting ids", http.StatusBadRequest)
		return
	}

	if err := engine.SwapMeetings(r.Context(), body.MeetingIDA, body.MeetingIDB); err != nil {
		respondEngineError(w, err)
		return
	}

	m, err := store.GetMeeting(r.Context(), body.MeetingIDA)
	if err == nil {
		agenda.Broadcast(m.EventID, utils.M{"type": "meetings-swapped", "meetingIdA": body.MeetingIDA, "meetingIdB": body.MeetingIDB})
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

// ListEventMeetings returns every meeting of an event, oldest first.
func ListEventMeetings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	meetings, err := store.MeetingsByEvent(r.Context(), eventID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load meetings")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"meetings": meetings})
}

// respondEngineError maps the engine's error taxonomy onto HTTP statuses.
func respondEngineError(w http.ResponseWriter, err error) {
	var (
		invalidTransition *scheduler.InvalidTransitionError
		quotaExceeded     *scheduler.QuotaExceededError
		consistency       *scheduler.ConsistencyError
		cfgErr            *scheduler.ConfigError
	)

	switch {
	case errors.As(err, &invalidTransition):
		utils.RespondWithError(w, http.StatusConflict, invalidTransition.Error())
	case errors.As(err, &quotaExceeded):
		utils.RespondWithError(w, http.StatusConflict, quotaExceeded.Error())
	case errors.As(err, &cfgErr):
		utils.RespondWithError(w, http.StatusBadRequest, cfgErr.Error())
	case errors.Is(err, scheduler.ErrNoSlotsAvailable):
		utils.RespondWithError(w, http.StatusConflict, "no slots available")
	case errors.Is(err, scheduler.ErrSlotConflict):
		utils.RespondWithError(w, http.StatusConflict, "slot no longer available, pick another")
	case errors.Is(err, scheduler.ErrSlotsExhausted):
		utils.RespondWithError(w, http.StatusConflict, "could not secure a slot, try again")
	case errors.Is(err, scheduler.ErrSwapConflict):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scheduler.ErrSelfMeeting):
		utils.RespondWithError(w, http.StatusBadRequest, "cannot request a meeting with yourself")
	case errors.Is(err, scheduler.ErrMeetingNotFound),
		errors.Is(err, scheduler.ErrEventNotFound),
		errors.Is(err, scheduler.ErrUnitNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &consistency):
		utils.RespondWithError(w, http.StatusInternalServerError, "internal scheduling inconsistency")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
