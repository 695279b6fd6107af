package notify

import (
	"fmt"
	"time"
)

// Message is a rendered notification ready for a delivery channel.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RenderTransition renders the zone transition message delivered to a
// guardian.
func RenderTransition(recipientName, wardName, zoneName string, eventType EventType, at time.Time) Message {
	verb := "entered"
	if eventType == EventLeave {
		verb = "left"
	}
	return Message{
		Subject: fmt.Sprintf("%s %s %s", wardName, verb, zoneName),
		Body: fmt.Sprintf("Hi %s,\n\n%s %s the zone %q at %s.\n",
			recipientName, wardName, verb, zoneName, at.UTC().Format(time.RFC1123)),
	}
}

// RenderFriendRequest renders the pending friend request message delivered
// to its recipient.
func RenderFriendRequest(recipientName, senderName string) Message {
	return Message{
		Subject: fmt.Sprintf("Friend request from %s", senderName),
		Body: fmt.Sprintf("Hi %s,\n\n%s sent you a friend request. Open the app to accept or reject it.\n",
			recipientName, senderName),
	}
}
