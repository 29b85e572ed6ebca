// internal/app/system/outbox/tasks.go
package outbox

import (
	"fmt"
	"strconv"
	"strings"

	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/mailer"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task kinds.
const (
	KindNotify            = "notify"
	KindEmail             = "email"
	KindWhatsApp          = "whatsapp"
	KindBroadcastRequest  = "broadcast_request"
	KindBroadcastAccepted = "broadcast_accepted"
)

const dataPrefix = "data."

// NotifyTask writes an in-app notification when processed.
func NotifyTask(n models.Notification) models.OutboxTask {
	p := map[string]string{
		"recipientId":   n.RecipientID.Hex(),
		"recipientType": n.RecipientType,
		"title":         n.Title,
		"message":       n.Message,
		"type":          n.Type,
	}
	for k, v := range n.Data {
		p[dataPrefix+k] = v
	}
	return outboxstore.NewTask(KindNotify, p)
}

func notificationFromPayload(p map[string]string) (models.Notification, error) {
	id, err := primitive.ObjectIDFromHex(p["recipientId"])
	if err != nil {
		return models.Notification{}, fmt.Errorf("recipientId: %w", err)
	}
	n := models.Notification{
		RecipientID:   id,
		RecipientType: p["recipientType"],
		Title:         p["title"],
		Message:       p["message"],
		Type:          p["type"],
	}
	for k, v := range p {
		if strings.HasPrefix(k, dataPrefix) {
			if n.Data == nil {
				n.Data = map[string]string{}
			}
			n.Data[strings.TrimPrefix(k, dataPrefix)] = v
		}
	}
	return n, nil
}

// EmailTask sends e when processed.
func EmailTask(e mailer.Email) models.OutboxTask {
	return outboxstore.NewTask(KindEmail, map[string]string{
		"to":      e.To,
		"subject": e.Subject,
		"text":    e.TextBody,
		"html":    e.HTMLBody,
	})
}

func emailFromPayload(p map[string]string) mailer.Email {
	return mailer.Email{To: p["to"], Subject: p["subject"], TextBody: p["text"], HTMLBody: p["html"]}
}

// WhatsAppTask messages phone when processed.
func WhatsAppTask(phone, body string) models.OutboxTask {
	return outboxstore.NewTask(KindWhatsApp, map[string]string{"phone": phone, "body": body})
}

// BroadcastRequestTask fans a new blood request out to every donor of the
// same blood group except the requester.
func BroadcastRequestTask(br models.BloodRequest, link string) models.OutboxTask {
	return outboxstore.NewTask(KindBroadcastRequest, map[string]string{
		"bloodRequestId":   br.ID.Hex(),
		"requesterId":      br.RequesterID.Hex(),
		"bloodGroup":       br.BloodGroup,
		"quantity":         strconv.Itoa(br.Quantity),
		"urgency":          br.Urgency,
		"hospitalName":     br.HospitalName,
		"hospitalLocation": br.HospitalLocation,
		"link":             link,
	})
}

// BroadcastAcceptedTask tells every user except the donor that a request
// was accepted.
func BroadcastAcceptedTask(br models.BloodRequest, donorID primitive.ObjectID, donorName string) models.OutboxTask {
	return outboxstore.NewTask(KindBroadcastAccepted, map[string]string{
		"bloodRequestId": br.ID.Hex(),
		"donorId":        donorID.Hex(),
		"donorName":      donorName,
		"bloodGroup":     br.BloodGroup,
		"hospitalName":   hospitalLabel(br.HospitalName, br.HospitalLocation),
	})
}

func hospitalLabel(name, location string) string {
	switch {
	case name != "" && location != "":
		return name + " (" + location + ")"
	case name != "":
		return name
	}
	return location
}
