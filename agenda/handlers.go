package agenda

import (
	"errors"
	"net/http"
	"time"

	"convene/db"
	"convene/mq"
	"convene/scheduler"
	"convene/schedstore"
	"convene/utils"

	"github.com/julienschmidt/httprouter"
)

var engine = scheduler.New(schedstore.New(db.Client), mq.NewEmitter())

// GenerateAgenda derives the full (table, time-slot) grid from the event's
// schedule config and persists it.
func GenerateAgenda(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	count, err := engine.GenerateAgenda(r.Context(), eventID)
	if err != nil {
		var cfgErr *scheduler.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			utils.RespondWithError(w, http.StatusBadRequest, cfgErr.Error())
		case errors.Is(err, scheduler.ErrAgendaExists):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, scheduler.ErrEventNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "event not found")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate agenda")
		}
		return
	}

	Broadcast(eventID, utils.M{"type": "agenda-generated", "count": count})
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"ok": true, "count": count})
}

// ResetAgenda frees every unit without deleting any.
func ResetAgenda(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	count, err := engine.ResetAgenda(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, scheduler.ErrEventNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "event not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to reset agenda")
		return
	}

	Broadcast(eventID, utils.M{"type": "agenda-reset", "count": count})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "count": count})
}

// DeleteAgenda removes the grid and cascades to every meeting of the
// event. Destructive, admin-only.
func DeleteAgenda(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	unitsDeleted, meetingsDeleted, err := engine.DeleteAgenda(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, scheduler.ErrEventNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "event not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to delete agenda")
		return
	}

	Broadcast(eventID, utils.M{"type": "agenda-deleted"})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"ok":              true,
		"unitsDeleted":    unitsDeleted,
		"meetingsDeleted": meetingsDeleted,
	})
}

// ListAgenda returns the event's full grid in stable (slot, table) order.
func ListAgenda(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	store := schedstore.New(db.Client)
	units, err := store.AgendaUnits(r.Context(), eventID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load agenda")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"units": units, "generatedAt": time.Now().UTC()})
}
