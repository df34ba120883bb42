package maintenance

import (
	"context"
	"fmt"
	"strings"
)

// Category es la categoría fija del evento en el transporte del cluster.
const Category = "maintenance"

// Event es la variante de notificación del cluster. No lleva payload:
// el receptor re-deriva su Record (start => recarga del Store, end => limpia).
type Event string

const (
	EventStart Event = "start"
	EventEnd   Event = "end"
)

// ParseEvent valida la variante recibida por el transporte.
func ParseEvent(s string) (Event, error) {
	switch Event(strings.TrimSpace(s)) {
	case EventStart:
		return EventStart, nil
	case EventEnd:
		return EventEnd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// ClientEvent es el nombre del evento en el canal push ("maintenance.start").
func (e Event) ClientEvent() string {
	return Namespace + "." + string(e)
}

// Message es lo que entrega el transporte del cluster.
type Message struct {
	Category string   `json:"category"`
	Body     []string `json:"body"`
	Origin   string   `json:"origin,omitempty"`
}

// Transport es el colaborador de broadcast best-effort entre nodos.
// Broadcast es fire-and-forget; Subscribe entrega mensajes hasta que ctx termina.
type Transport interface {
	Broadcast(ctx context.Context, category string, body []string) error
	Subscribe(ctx context.Context, category string) (<-chan Message, error)
}

// ClientPush es el canal hacia los clientes finales conectados.
type ClientPush interface {
	Broadcast(ctx context.Context, event string, payload any) error
}

// ClientNotice es el payload enviado a los clientes. A diferencia del evento
// del cluster, los clientes lo toman tal cual: solo alimenta la UI.
type ClientNotice struct {
	Event  string  `json:"event"`
	Record *Record `json:"record"`
	Status Status  `json:"status"`
}
