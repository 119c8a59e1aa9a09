package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/teris-io/shortid"
	"github.com/taskify-app/taskify-chat/internal/database"
	"github.com/taskify-app/taskify-chat/internal/types"
)

const (
	maxContentLength = 2000
	defaultPageSize  = 50
	maxPageSize      = 200
)

// ProjectDirectory resolves project authorization facts owned by the
// main TaskiFy API.
type ProjectDirectory interface {
	ProjectLead(ctx context.Context, projectId string) (string, error)
}

// EventPublisher receives outbound notifications about message activity.
// Delivery is fire-and-forget: the coordinator never blocks on it and a
// failed publish never fails the operation.
type EventPublisher interface {
	MessageSent(msg types.Message)
	MessageDeleted(id string, scope types.Scope)
}

// Coordinator validates and sequences message create, edit and delete
// operations against the message store and broadcasts the resulting
// events. The websocket and REST entry points share one Coordinator so
// validation and authorization cannot diverge between them.
type Coordinator struct {
	log       *log.Logger
	repo      database.MessageRepository
	hub       *Hub
	directory ProjectDirectory
	publisher EventPublisher
	// generateId is replaceable in tests
	generateId func() (string, error)
}

func NewCoordinator(logger *log.Logger, repo database.MessageRepository, hub *Hub, directory ProjectDirectory, publisher EventPublisher) *Coordinator {
	return &Coordinator{
		log:        logger,
		repo:       repo,
		hub:        hub,
		directory:  directory,
		publisher:  publisher,
		generateId: shortid.Generate,
	}
}

// resolveScope maps a (project, receiver) selector to a concrete scope.
// Exactly one of the two must be set.
func resolveScope(senderId, projectId, receiverId string) (types.Scope, error) {
	if (projectId == "") == (receiverId == "") {
		return types.Scope{}, ErrInvalidTarget
	}

	if projectId != "" {
		return types.ProjectScope(projectId), nil
	}

	return types.PersonalScope(senderId, receiverId), nil
}

func validateContent(req SendMessage) error {
	if req.Kind == types.KindText || req.Kind == types.KindSystem {
		if strings.TrimSpace(req.Content) == "" {
			return fmt.Errorf("%w: content is required", ErrValidation)
		}
	} else if req.Metadata == nil || req.Metadata.FileUrl == "" {
		return fmt.Errorf("%w: file url is required for %s messages", ErrValidation, req.Kind)
	}

	if len(req.Content) > maxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", ErrValidation, maxContentLength)
	}

	return nil
}

// Send persists a message and fans it out to the resolved scope. The
// message is broadcast only after it is durably stored; a persistence
// failure is reported to the sender alone and nothing is broadcast.
func (c *Coordinator) Send(ctx context.Context, sender types.Identity, req SendMessage) (types.Message, error) {
	if req.Kind == "" {
		req.Kind = types.KindText
	}

	scope, err := resolveScope(sender.Id, req.ProjectId, req.ReceiverId)
	if err != nil {
		return types.Message{}, err
	}

	if err := validateContent(req); err != nil {
		return types.Message{}, err
	}

	externalId, err := c.generateId()
	if err != nil {
		return types.Message{}, fmt.Errorf("%w: generate id: %v", ErrPersistence, err)
	}

	params := database.CreateMessageParams{
		ExternalId: externalId,
		ProjectId:  req.ProjectId,
		SenderId:   sender.Id,
		SenderName: sender.DisplayName,
		ReceiverId: req.ReceiverId,
		Content:    strings.TrimSpace(req.Content),
		Kind:       req.Kind,
	}
	if scope.IsPersonal() {
		params.PairKey = scope.Key()
	}
	if req.Metadata != nil {
		params.FileName = req.Metadata.FileName
		params.FileUrl = req.Metadata.FileUrl
		params.FileSize = req.Metadata.FileSize
	}

	row, err := c.repo.CreateMessage(ctx, params)
	if err != nil {
		c.log.Println("create message:", err)
		return types.Message{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg := publicMessage(row)
	c.hub.EmitToScope(scope, NewServerEvent(EventNewMessage, msg), "")
	c.hub.stats.Incr(StatMessagesSent)

	if c.publisher != nil {
		c.publisher.MessageSent(msg)
	}

	return msg, nil
}

// Edit updates the content of a text message. Only the original sender
// may edit, and only text messages are editable; a non-text id behaves
// as if the message did not exist.
func (c *Coordinator) Edit(ctx context.Context, editor types.Identity, messageId, content string) (types.Message, error) {
	row, err := c.repo.GetTextMessage(ctx, messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, ErrNotFound
		}
		return types.Message{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if row.SenderId != editor.Id {
		return types.Message{}, ErrForbidden
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return types.Message{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(content) > maxContentLength {
		return types.Message{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, maxContentLength)
	}

	updated, err := c.repo.UpdateMessageContent(ctx, messageId, content)
	if err != nil {
		c.log.Println("update message:", err)
		return types.Message{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg := publicMessage(updated)
	c.hub.EmitToScope(msg.Scope(), NewServerEvent(EventMessageEdited, MessageEdited{
		Id:         msg.Id,
		Content:    msg.Content,
		IsEdited:   msg.IsEdited,
		EditedAt:   msg.EditedAt,
		ProjectId:  msg.ProjectId,
		ReceiverId: msg.ReceiverId,
	}), "")
	c.hub.stats.Incr(StatMessagesEdited)

	return msg, nil
}

// Delete removes a message. The sender, an admin, or the lead of the
// message's project may delete; anyone else is refused. Connected
// clients viewing the scope receive a message-deleted event so they
// converge without reloading history.
func (c *Coordinator) Delete(ctx context.Context, requester types.Identity, messageId string) error {
	row, err := c.repo.GetMessage(ctx, messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !c.canDelete(ctx, requester, row) {
		return ErrForbidden
	}

	if err := c.repo.DeleteMessage(ctx, messageId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		c.log.Println("delete message:", err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg := publicMessage(row)
	scope := msg.Scope()
	c.hub.EmitToScope(scope, NewServerEvent(EventMessageDeleted, MessageDeleted{
		Id:         msg.Id,
		ProjectId:  msg.ProjectId,
		ReceiverId: msg.ReceiverId,
	}), "")
	c.hub.stats.Incr(StatMessagesDeleted)

	if c.publisher != nil {
		c.publisher.MessageDeleted(msg.Id, scope)
	}

	return nil
}

func (c *Coordinator) canDelete(ctx context.Context, requester types.Identity, row database.Message) bool {
	if requester.Id == row.SenderId || requester.Role == types.RoleAdmin {
		return true
	}

	if row.ProjectId != "" && c.directory != nil {
		lead, err := c.directory.ProjectLead(ctx, row.ProjectId)
		if err != nil {
			c.log.Printf("project lead lookup for %q: %v", row.ProjectId, err)
			return false
		}
		return lead != "" && lead == requester.Id
	}

	return false
}

// History returns one page of a conversation's messages in oldest-first
// order, with an exact has-more flag. The store is read newest first,
// probing one row past the limit.
func (c *Coordinator) History(ctx context.Context, scope types.Scope, limit int, before time.Time) ([]types.Message, bool, error) {
	if err := scope.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	params := database.GetMessagesParams{
		ProjectId: scope.Project,
		Before:    before,
		Limit:     limit + 1,
	}
	if scope.IsPersonal() {
		params.PairKey = scope.Key()
	}

	rows, err := c.repo.GetMessages(ctx, params)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	// newest-first from the store, oldest-first for scrollback rendering
	messages := make([]types.Message, len(rows))
	for i, row := range rows {
		messages[len(rows)-1-i] = publicMessage(row)
	}

	return messages, hasMore, nil
}

// Typing forwards an ephemeral typing indicator to the scope's other
// members. Nothing is persisted or validated beyond target resolution;
// receivers expire the indicator client-side after TypingExpiry.
func (c *Coordinator) Typing(sender types.Identity, target TypingTarget, stop bool, skipConn string) error {
	scope, err := resolveScope(sender.Id, target.ProjectId, target.ReceiverId)
	if err != nil {
		return err
	}

	event := EventUserTyping
	if stop {
		event = EventUserStopTyping
	}

	c.hub.EmitToScope(scope, NewServerEvent(event, UserTyping{
		UserId:     sender.Id,
		UserName:   sender.DisplayName,
		IsPersonal: scope.IsPersonal(),
	}), skipConn)

	return nil
}

func publicMessage(row database.Message) types.Message {
	msg := types.Message{
		Id:         row.ExternalId,
		ProjectId:  row.ProjectId,
		SenderId:   row.SenderId,
		SenderName: row.SenderName,
		ReceiverId: row.ReceiverId,
		Content:    row.Content,
		Kind:       row.Kind,
		IsEdited:   row.IsEdited,
		EditedAt:   row.EditedAt,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}

	if row.FileUrl != "" {
		msg.Metadata = &types.FileMetadata{
			FileName: row.FileName,
			FileUrl:  row.FileUrl,
			FileSize: row.FileSize,
		}
	}

	return msg
}
