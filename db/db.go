package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	EventsCollection        *mongo.Collection
	UserCollection          *mongo.Collection
	MeetingsCollection      *mongo.Collection
	AgendaCollection        *mongo.Collection
	NotificationsCollection *mongo.Collection
	Client                  *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	Client, err = mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	dbName := os.Getenv("MONGODB_DB")
	if dbName == "" {
		dbName = "convenedb"
	}

	EventsCollection = Client.Database(dbName).Collection("events")
	UserCollection = Client.Database(dbName).Collection("users")
	MeetingsCollection = Client.Database(dbName).Collection("meetings")
	AgendaCollection = Client.Database(dbName).Collection("agenda")
	NotificationsCollection = Client.Database(dbName).Collection("notifications")
}
