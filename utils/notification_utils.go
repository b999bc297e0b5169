// utils/notification_utils.go
package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/gomail.v2"

	"github.com/abilsmall/marketplace_backend/config"
	"github.com/abilsmall/marketplace_backend/models"
)

// SaveNotification saves an in-app notification to the database
func SaveNotification(db *mongo.Client, userID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	collection := config.GetCollection(db, "notifications")

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	_, err := collection.InsertOne(context.Background(), notification)
	return err
}

// SendNotificationEmail sends a plain-text email via SMTP
func SendNotificationEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromEmail := os.Getenv("FROM_EMAIL")

	senderEmail := fromEmail
	if senderEmail == "" {
		senderEmail = smtpUser
	}

	if smtpHost == "" || smtpUser == "" || smtpPass == "" || senderEmail == "" {
		return fmt.Errorf("SMTP configuration is incomplete: check SMTP_HOST, SMTP_USER, SMTP_PASS, and FROM_EMAIL")
	}

	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if portNum, err := strconv.Atoi(portStr); err == nil && portNum > 0 {
			smtpPort = portNum
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", senderEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}

// SendPushNotification sends an FCM push to a device token. No-op when
// Firebase is not configured.
func SendPushNotification(token, title, body string) error {
	if config.FirebaseApp == nil || token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("failed to get messaging client: %w", err)
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}

	_, err = client.Send(ctx, msg)
	return err
}

// NotifyUser stores an in-app notification and, best effort, delivers it over
// email and push according to the user's preferences. Delivery failures are
// logged, never propagated: notifications must not block settlement paths.
func NotifyUser(db *mongo.Client, userID primitive.ObjectID, title, message, notifType string, data interface{}) {
	if err := SaveNotification(db, userID, title, message, notifType, data); err != nil {
		log.Printf("Failed to save notification for user %s: %v", userID.Hex(), err)
	}

	var user models.User
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := config.GetCollection(db, "users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		log.Printf("Failed to load user %s for notification: %v", userID.Hex(), err)
		return
	}

	if user.NotifyEmail && user.Email != "" {
		if err := SendNotificationEmail(user.Email, title, message); err != nil {
			log.Printf("Failed to send notification email to %s: %v", user.Email, err)
		}
	}

	if err := SendPushNotification(user.FCMToken, title, message); err != nil {
		log.Printf("Failed to send push notification to user %s: %v", userID.Hex(), err)
	}
}

// LogActivity appends a row to the per-company activity feed
func LogActivity(db *mongo.Client, companyID primitive.ObjectID, action, description string) {
	collection := config.GetCollection(db, "company_activities")
	_, err := collection.InsertOne(context.Background(), models.CompanyActivity{
		ID:          primitive.NewObjectID(),
		CompanyID:   companyID,
		Action:      action,
		Description: description,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Printf("Failed to log activity %s for company %s: %v", action, companyID.Hex(), err)
	}
}
