package mq

import (
	"context"
	"net/http"
	"time"

	"convene/db"
	"convene/models"
	"convene/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetNotifications returns the caller's notifications, newest first.
func GetNotifications(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "missing user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(100)
	cur, err := db.NotificationsCollection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(ctx)

	var notifications []models.Notification
	if err := cur.All(ctx, &notifications); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"notifications": notifications})
}
