package schedstore

import (
	"context"
	"fmt"
	"time"

	"convene/db"
	"convene/models"
	"convene/scheduler"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements scheduler.Store on MongoDB. Slot claims use a
// conditional update on the unit's available flag (compare-and-set): the
// filter carries "available": true, so of two racing writers only one
// update matches. Compound operations run inside a session transaction so
// meeting and ledger records always change together.
type Store struct {
	client *mongo.Client
}

func New(client *mongo.Client) *Store {
	return &Store{client: client}
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var ev models.Event
	err := db.EventsCollection.FindOne(ctx, bson.M{"eventid": eventID}).Decode(&ev)
	if err == mongo.ErrNoDocuments {
		return nil, scheduler.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &ev, nil
}

func (s *Store) GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	var m models.Meeting
	err := db.MeetingsCollection.FindOne(ctx, bson.M{"id": meetingID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, scheduler.ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return &m, nil
}

func (s *Store) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	if _, err := db.MeetingsCollection.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

func (s *Store) UpdateMeetingStatus(ctx context.Context, meetingID string, status models.MeetingStatus) error {
	res, err := db.MeetingsCollection.UpdateOne(ctx,
		bson.M{"id": meetingID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update meeting status: %w", err)
	}
	if res.MatchedCount == 0 {
		return scheduler.ErrMeetingNotFound
	}
	return nil
}

func (s *Store) AcceptedForUsers(ctx context.Context, eventID string, userIDs []string) ([]models.Meeting, error) {
	cur, err := db.MeetingsCollection.Find(ctx, bson.M{
		"eventid":      eventID,
		"status":       models.MeetingStatusAccepted,
		"participants": bson.M{"$in": userIDs},
	})
	if err != nil {
		return nil, fmt.Errorf("accepted meetings: %w", err)
	}
	defer cur.Close(ctx)

	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, fmt.Errorf("decode meetings: %w", err)
	}
	return meetings, nil
}

func (s *Store) CountAccepted(ctx context.Context, eventID, userID string) (int, error) {
	n, err := db.MeetingsCollection.CountDocuments(ctx, bson.M{
		"eventid":      eventID,
		"status":       models.MeetingStatusAccepted,
		"participants": userID,
	})
	if err != nil {
		return 0, fmt.Errorf("count accepted: %w", err)
	}
	return int(n), nil
}

func (s *Store) MeetingsByEvent(ctx context.Context, eventID string) ([]models.Meeting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := db.MeetingsCollection.Find(ctx, bson.M{"eventid": eventID}, opts)
	if err != nil {
		return nil, fmt.Errorf("meetings by event: %w", err)
	}
	defer cur.Close(ctx)

	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, fmt.Errorf("decode meetings: %w", err)
	}
	return meetings, nil
}

func (s *Store) AgendaUnits(ctx context.Context, eventID string) ([]models.AgendaUnit, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "startTime", Value: 1},
		{Key: "tableNumber", Value: 1},
	})
	cur, err := db.AgendaCollection.Find(ctx, bson.M{"eventid": eventID}, opts)
	if err != nil {
		return nil, fmt.Errorf("agenda units: %w", err)
	}
	defer cur.Close(ctx)

	var units []models.AgendaUnit
	if err := cur.All(ctx, &units); err != nil {
		return nil, fmt.Errorf("decode units: %w", err)
	}
	return units, nil
}

func (s *Store) GetUnit(ctx context.Context, unitID string) (*models.AgendaUnit, error) {
	var u models.AgendaUnit
	err := db.AgendaCollection.FindOne(ctx, bson.M{"id": unitID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, scheduler.ErrUnitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &u, nil
}

func (s *Store) InsertUnits(ctx context.Context, units []models.AgendaUnit) (int, error) {
	docs := make([]interface{}, len(units))
	for i, u := range units {
		docs[i] = u
	}
	res, err := db.AgendaCollection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert units: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (s *Store) ResetAgenda(ctx context.Context, eventID string) (int, error) {
	res, err := db.AgendaCollection.UpdateMany(ctx,
		bson.M{"eventid": eventID},
		bson.M{"$set": bson.M{"available": true}, "$unset": bson.M{"meetingId": ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("reset agenda: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (s *Store) DeleteAgenda(ctx context.Context, eventID string) (int, int, error) {
	var unitsDeleted, meetingsDeleted int
	err := s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		ur, err := db.AgendaCollection.DeleteMany(sc, bson.M{"eventid": eventID})
		if err != nil {
			return fmt.Errorf("delete units: %w", err)
		}
		// Deleting the agenda invalidates every meeting that referenced it.
		mr, err := db.MeetingsCollection.DeleteMany(sc, bson.M{"eventid": eventID})
		if err != nil {
			return fmt.Errorf("delete meetings: %w", err)
		}
		unitsDeleted = int(ur.DeletedCount)
		meetingsDeleted = int(mr.DeletedCount)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return unitsDeleted, meetingsDeleted, nil
}

// claimUnit is the CAS: the update only matches while the unit is still
// free. Zero matches means another writer won the race.
func claimUnit(ctx context.Context, unitID, meetingID string) error {
	res, err := db.AgendaCollection.UpdateOne(ctx,
		bson.M{"id": unitID, "available": true},
		bson.M{"$set": bson.M{"available": false, "meetingId": meetingID}},
	)
	if err != nil {
		return fmt.Errorf("claim unit: %w", err)
	}
	if res.MatchedCount == 0 {
		return scheduler.ErrSlotConflict
	}
	return nil
}

func freeUnit(ctx context.Context, unitID string) error {
	res, err := db.AgendaCollection.UpdateOne(ctx,
		bson.M{"id": unitID},
		bson.M{"$set": bson.M{"available": true}, "$unset": bson.M{"meetingId": ""}},
	)
	if err != nil {
		return fmt.Errorf("free unit: %w", err)
	}
	if res.MatchedCount == 0 {
		return scheduler.ErrUnitNotFound
	}
	return nil
}

func (s *Store) CommitAccept(ctx context.Context, meetingID string, unit *models.AgendaUnit) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := claimUnit(sc, unit.ID, meetingID); err != nil {
			return err
		}
		res, err := db.MeetingsCollection.UpdateOne(sc,
			bson.M{"id": meetingID, "status": models.MeetingStatusPending},
			bson.M{"$set": bson.M{
				"status":        models.MeetingStatusAccepted,
				"timeSlot":      unit.Range(),
				"tableAssigned": scheduler.TableLabel(unit.TableNumber),
				"unitId":        unit.ID,
				"updatedAt":     time.Now().UTC(),
			}},
		)
		if err != nil {
			return fmt.Errorf("accept meeting: %w", err)
		}
		if res.MatchedCount == 0 {
			// Meeting left pending between read and commit; abort so
			// the unit claim rolls back with the transaction.
			return scheduler.ErrMeetingNotFound
		}
		return nil
	})
}

func (s *Store) CommitRelease(ctx context.Context, meetingID, unitID string, status models.MeetingStatus) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := freeUnit(sc, unitID); err != nil {
			return err
		}
		res, err := db.MeetingsCollection.UpdateOne(sc,
			bson.M{"id": meetingID},
			bson.M{
				"$set":   bson.M{"status": status, "updatedAt": time.Now().UTC()},
				"$unset": bson.M{"timeSlot": "", "tableAssigned": "", "unitId": ""},
			},
		)
		if err != nil {
			return fmt.Errorf("release meeting: %w", err)
		}
		if res.MatchedCount == 0 {
			return scheduler.ErrMeetingNotFound
		}
		return nil
	})
}

func (s *Store) CommitReschedule(ctx context.Context, meetingID, oldUnitID string, newUnit *models.AgendaUnit) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		// Claim first: losing the race aborts before the old unit is
		// touched, so the meeting never points at a released slot.
		if err := claimUnit(sc, newUnit.ID, meetingID); err != nil {
			return err
		}
		if err := freeUnit(sc, oldUnitID); err != nil {
			return err
		}
		res, err := db.MeetingsCollection.UpdateOne(sc,
			bson.M{"id": meetingID, "status": models.MeetingStatusAccepted},
			bson.M{"$set": bson.M{
				"timeSlot":      newUnit.Range(),
				"tableAssigned": scheduler.TableLabel(newUnit.TableNumber),
				"unitId":        newUnit.ID,
				"updatedAt":     time.Now().UTC(),
			}},
		)
		if err != nil {
			return fmt.Errorf("reschedule meeting: %w", err)
		}
		if res.MatchedCount == 0 {
			return scheduler.ErrMeetingNotFound
		}
		return nil
	})
}

func (s *Store) CommitSwap(ctx context.Context, a, b *models.Meeting) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		now := time.Now().UTC()
		updates := []struct {
			meeting *models.Meeting
			from    *models.Meeting
		}{
			{meeting: a, from: b},
			{meeting: b, from: a},
		}
		for _, u := range updates {
			res, err := db.MeetingsCollection.UpdateOne(sc,
				bson.M{"id": u.meeting.ID, "status": models.MeetingStatusAccepted},
				bson.M{"$set": bson.M{
					"timeSlot":      u.from.TimeSlot,
					"tableAssigned": u.from.TableAssigned,
					"unitId":        u.from.UnitID,
					"updatedAt":     now,
				}},
			)
			if err != nil {
				return fmt.Errorf("swap meeting %s: %w", u.meeting.ID, err)
			}
			if res.MatchedCount == 0 {
				return scheduler.ErrMeetingNotFound
			}
		}
		for _, u := range updates {
			// Unit previously bound to u.from now points at u.meeting.
			res, err := db.AgendaCollection.UpdateOne(sc,
				bson.M{"id": u.from.UnitID},
				bson.M{"$set": bson.M{"meetingId": u.meeting.ID}},
			)
			if err != nil {
				return fmt.Errorf("swap unit %s: %w", u.from.UnitID, err)
			}
			if res.MatchedCount == 0 {
				return scheduler.ErrUnitNotFound
			}
		}
		return nil
	})
}

// inTransaction runs fn in a session transaction; any error aborts the
// whole set of writes. Requires a replica set (standalone mongod has no
// transactions).
func (s *Store) inTransaction(ctx context.Context, fn func(mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
