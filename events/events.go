package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"convene/db"
	"convene/models"
	"convene/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if event.Title == "" {
		http.Error(w, "Missing title", http.StatusBadRequest)
		return
	}

	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	event.EventID = utils.GenerateRandomString(14)
	event.CreatorID = requestingUserID
	event.Status = "active"
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Date = event.Date.UTC()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := db.EventsCollection.InsertOne(ctx, event); err != nil {
		http.Error(w, "db insert failed", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"ok": true, "event": event})
}

func GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var event models.Event
	err := db.EventsCollection.FindOne(ctx, bson.M{"eventid": eventID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"event": event})
}

// UpdateScheduleConfig replaces the event's scheduling parameters. The
// config is validated when the agenda is generated, not here, so admins
// can stage partial edits.
func UpdateScheduleConfig(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	var cfg models.ScheduleConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := db.EventsCollection.UpdateOne(ctx,
		bson.M{"eventid": eventID},
		bson.M{"$set": bson.M{"schedule": cfg, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "schedule": cfg})
}
