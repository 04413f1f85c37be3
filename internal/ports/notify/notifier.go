package notify

import "context"

type MessageType string

const (
	TypeAppointment MessageType = "appointment"
	TypeMedication  MessageType = "medication"
	TypeSystem      MessageType = "system"
)

type Message struct {
	Type  MessageType
	Title string
	Body  string
}

// Notifier es opcional: quien lo reciba nil no notifica.
type Notifier interface {
	Notify(ctx context.Context, userID string, msg Message) error
}
