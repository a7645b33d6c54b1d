package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/storage"
	"github.com/saliftankoano/roogo-web-sub000/utils"
)

// Lock lifecycle event kinds dispatched to both counterparties.
type LockEventKind string

const (
	LockEventDay0      LockEventKind = "DAY_0"
	LockEventDay3      LockEventKind = "DAY_3"
	LockEventDay5      LockEventKind = "DAY_5"
	LockEventDay7      LockEventKind = "DAY_7"
	LockEventFinalized LockEventKind = "FINALIZED"
	LockEventReopened  LockEventKind = "REOPENED"
)

// LockEvent is what the state machine emits when a lock changes state.
// Delivery is a side effect, never authoritative state.
type LockEvent struct {
	Kind       LockEventKind
	LockID     uint
	PropertyID uint
	AgentID    uint
	RenterID   uint
	Title      string
	Address    string
}

// Pusher is the delivery boundary. Production sends through the Expo
// endpoint; tests swap in a recording fake.
type Pusher interface {
	Send(token, title, body string, data map[string]string) error
}

// ExpoPusher delivers through an Expo-compatible push endpoint.
type ExpoPusher struct {
	URL string
}

func (p ExpoPusher) Send(token, title, body string, data map[string]string) error {
	return utils.SendExpoPush(p.URL, token, title, body, data)
}

// NotificationService handles all push notification logic
type NotificationService struct {
	pusher Pusher
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(pusher Pusher) *NotificationService {
	return &NotificationService{pusher: pusher}
}

// getUserPushTokens retrieves all push tokens for a user
func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// SendNotificationToUser sends a push to every registered token of a user
// and records an in-app history row. Delivery failures are logged, never
// escalated to the caller.
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, eventType string, propertyID *uint, data map[string]string) error {
	delivered := false

	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("📱 NOTIFICATION: no deliverable tokens for user %d: %v", userID, err)
	} else {
		for _, token := range tokens {
			if sendErr := ns.pusher.Send(token, title, body, data); sendErr != nil {
				log.Printf("❌ NOTIFICATION ERROR: token %s for user %d: %v", token, userID, sendErr)
			} else {
				delivered = true
			}
		}
	}

	record := models.Notification{
		UserID:     userID,
		Type:       eventType,
		Title:      title,
		Body:       body,
		PropertyID: propertyID,
		Delivered:  delivered,
	}
	if err := storage.DB.Create(&record).Error; err != nil {
		log.Printf("❌ NOTIFICATION ERROR: failed to persist history for user %d: %v", userID, err)
		return err
	}

	return nil
}

// lockEventCopy returns the agent-facing and renter-facing title/body for
// a lifecycle event.
func lockEventCopy(ev LockEvent) (agentTitle, agentBody, renterTitle, renterBody string) {
	switch ev.Kind {
	case LockEventDay0:
		agentTitle = "🔒 Propriété Réservée!"
		agentBody = fmt.Sprintf("Votre propriété '%s' a été réservée. Vous avez 7 jours pour conclure la location.", ev.Title)
		renterTitle = "🎉 Réservation Confirmée!"
		renterBody = fmt.Sprintf("Votre réservation Early Bird pour '%s' est active pendant 7 jours. Contactez l'agent pour organiser la visite.", ev.Title)
	case LockEventDay3:
		agentTitle = "⏳ Rappel: Jour 3"
		agentBody = fmt.Sprintf("La réservation de '%s' atteint son 3e jour. Pensez à finaliser la location.", ev.Title)
		renterTitle = "⏳ Rappel: Jour 3"
		renterBody = fmt.Sprintf("Votre réservation pour '%s' atteint son 3e jour. Il vous reste 4 jours.", ev.Title)
	case LockEventDay5:
		agentTitle = "⚠️ Rappel: Jour 5"
		agentBody = fmt.Sprintf("La réservation de '%s' expire dans 2 jours. Finalisez ou elle sera remise en ligne.", ev.Title)
		renterTitle = "⚠️ Rappel: Jour 5"
		renterBody = fmt.Sprintf("Votre réservation pour '%s' expire dans 2 jours!", ev.Title)
	case LockEventDay7:
		agentTitle = "🔓 Réservation Expirée"
		agentBody = fmt.Sprintf("La réservation de '%s' a expiré. La propriété est de nouveau en ligne.", ev.Title)
		renterTitle = "😔 Réservation Expirée"
		renterBody = fmt.Sprintf("Votre réservation pour '%s' a expiré sans finalisation.", ev.Title)
	case LockEventFinalized:
		agentTitle = "✅ Location Conclue!"
		agentBody = fmt.Sprintf("Félicitations! La location de '%s' est confirmée.", ev.Title)
		renterTitle = "🏠 Bienvenue Chez Vous!"
		renterBody = fmt.Sprintf("Félicitations! La location de '%s' est confirmée.", ev.Title)
	case LockEventReopened:
		agentTitle = "🔓 Réservation Annulée"
		agentBody = fmt.Sprintf("La réservation de '%s' a été annulée. La propriété est de nouveau en ligne.", ev.Title)
		renterTitle = "😔 Réservation Annulée"
		renterBody = fmt.Sprintf("Votre réservation pour '%s' a été annulée par nos équipes.", ev.Title)
	}
	return
}

// DispatchLockEvent notifies both the agent and the renter about a lock
// lifecycle transition. Fire-and-forget from the state machine's
// perspective.
func (ns *NotificationService) DispatchLockEvent(ev LockEvent) {
	agentTitle, agentBody, renterTitle, renterBody := lockEventCopy(ev)

	data := map[string]string{
		"type":       "property_lock_" + string(ev.Kind),
		"id":         fmt.Sprintf("%d", ev.LockID),
		"propertyId": fmt.Sprintf("%d", ev.PropertyID),
	}

	propertyID := ev.PropertyID
	eventType := "property_lock_" + string(ev.Kind)

	if err := ns.SendNotificationToUser(ev.AgentID, agentTitle, agentBody, eventType, &propertyID, data); err != nil {
		log.Printf("❌ NOTIFICATION ERROR: lock event %s to agent %d: %v", ev.Kind, ev.AgentID, err)
	}
	if err := ns.SendNotificationToUser(ev.RenterID, renterTitle, renterBody, eventType, &propertyID, data); err != nil {
		log.Printf("❌ NOTIFICATION ERROR: lock event %s to renter %d: %v", ev.Kind, ev.RenterID, err)
	}
}
