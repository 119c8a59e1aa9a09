package events

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/taskify-app/taskify-chat/internal/types"
)

const (
	subjectMessageSent    = "chat.message.sent"
	subjectMessageDeleted = "chat.message.deleted"
)

// MessageSentEvent notifies external collaborators (email, task feeds)
// that a message was persisted and broadcast.
type MessageSentEvent struct {
	Id         string `json:"id"`
	ProjectId  string `json:"project_id,omitempty"`
	SenderId   string `json:"sender_id"`
	ReceiverId string `json:"receiver_id,omitempty"`
	Kind       string `json:"kind"`
}

type MessageDeletedEvent struct {
	Id        string `json:"id"`
	ScopeKey  string `json:"scope_key"`
	ProjectId string `json:"project_id,omitempty"`
}

// Publisher emits chat events on NATS. All publishes are fire-and-forget:
// errors are logged and swallowed so message delivery never depends on
// the notification pipeline. A nil Publisher is valid and publishes
// nothing.
type Publisher struct {
	log *log.Logger
	nc  *nats.Conn
}

func NewPublisher(logger *log.Logger, natsURL string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{log: logger, nc: nc}, nil
}

func (p *Publisher) publish(subject string, event any) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Printf("marshal %s: %v", subject, err)
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Printf("publish %s: %v", subject, err)
	}
}

func (p *Publisher) MessageSent(msg types.Message) {
	p.publish(subjectMessageSent, MessageSentEvent{
		Id:         msg.Id,
		ProjectId:  msg.ProjectId,
		SenderId:   msg.SenderId,
		ReceiverId: msg.ReceiverId,
		Kind:       msg.Kind,
	})
}

func (p *Publisher) MessageDeleted(id string, scope types.Scope) {
	p.publish(subjectMessageDeleted, MessageDeletedEvent{
		Id:        id,
		ScopeKey:  scope.Key(),
		ProjectId: scope.Project,
	})
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}
