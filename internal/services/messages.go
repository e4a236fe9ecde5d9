package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/pkg/encryption"
)

// UndecryptableContent replaces the body of a message whose record cannot be opened.
const UndecryptableContent = "[message could not be decrypted]"

const DefaultMaxContentLength = 4000

type Order string

const (
	Desc Order = "desc"
	Asc  Order = "asc"
)

// ParseOrder accepts "asc" and "desc" (case-insensitive); anything else is Desc.
func ParseOrder(s string) Order {
	if strings.EqualFold(s, string(Asc)) {
		return Asc
	}
	return Desc
}

// ListOptions selects a page. BeforeID narrows Before to a position inside
// that instant and is ignored without it.
type ListOptions struct {
	Limit    int
	Before   *time.Time
	BeforeID *uuid.UUID
	Order    Order
}

// Cursor is the position of the oldest message on a page.
type Cursor struct {
	Before   time.Time
	BeforeID uuid.UUID
}

// MessageView is a message with its body decrypted for display.
type MessageView struct {
	ID            uuid.UUID
	RoomID        uuid.UUID
	Author        models.User
	Content       string
	Timestamp     time.Time
	Edited        bool
	EditedAt      *time.Time
	Undecryptable bool
}

// MessagePage is one page of history. Next is set when older messages remain.
type MessagePage struct {
	Messages []MessageView
	HasMore  bool
	Next     *Cursor
}

// MessageStore encrypts on write and decrypts on read. Plaintext is never
// persisted or cached.
type MessageStore struct {
	repo             MessageRepository
	cipher           encryption.Cipher
	log              *logrus.Logger
	maxContentLength int
	now              func() time.Time
}

func NewMessageStore(repo MessageRepository, cipher encryption.Cipher, log *logrus.Logger, maxContentLength int) *MessageStore {
	if repo == nil || cipher == nil {
		panic("MessageStore needs a repository and a cipher")
	}
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	return &MessageStore{
		repo:             repo,
		cipher:           cipher,
		log:              log,
		maxContentLength: maxContentLength,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Send encrypts plaintext and persists the message with its record atomically.
func (s *MessageStore) Send(ctx context.Context, room *models.Room, author uuid.UUID, plaintext string) (*MessageView, error) {
	if err := s.validate(plaintext); err != nil {
		return nil, err
	}

	ciphertext, err := s.cipher.Encrypt([]byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}

	message := &models.Message{
		RoomID:    room.ID,
		UserID:    author,
		Timestamp: s.now(),
	}
	if err := s.repo.CreateMessage(ctx, message, ciphertext); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	logCtx := s.log.WithFields(logrus.Fields{"room_slug": room.Slug, "user_id": author, "message_id": message.ID})
	if err := s.repo.UpdateLastSeen(ctx, author); err != nil {
		logCtx.WithError(err).Warn("Failed to update last seen")
	}
	logCtx.Debug("Message sent")

	// The message is committed at this point; a failed reload must not make
	// the client retry and store it twice.
	stored, err := s.Get(ctx, message.ID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to reload sent message")
		return &MessageView{
			ID:        message.ID,
			RoomID:    message.RoomID,
			Author:    models.User{ID: author},
			Content:   plaintext,
			Timestamp: message.Timestamp,
		}, nil
	}
	view := s.Read(stored)
	return &view, nil
}

// Edit re-encrypts the replacement content into the message's existing record.
func (s *MessageStore) Edit(ctx context.Context, message *models.Message, plaintext string) (*MessageView, error) {
	if err := s.validate(plaintext); err != nil {
		return nil, err
	}

	ciphertext, err := s.cipher.Encrypt([]byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}

	err = s.repo.UpdateMessageContent(ctx, message, ciphertext, s.now())
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update message %s: %w", message.ID, err)
	}

	if message.EncryptedRecord == nil {
		message.EncryptedRecord = &models.EncryptedRecord{MessageID: message.ID, Ciphertext: ciphertext}
	}
	view := s.Read(message)
	return &view, nil
}

func (s *MessageStore) Delete(ctx context.Context, message *models.Message) error {
	err := s.repo.DeleteMessage(ctx, message.ID)
	if errors.Is(err, database.ErrRecordNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("delete message %s: %w", message.ID, err)
	}
	return nil
}

// Get loads a message with its author and encrypted record, without decrypting.
func (s *MessageStore) Get(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	message, err := s.repo.GetMessage(ctx, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return message, nil
}

// ListByRoom returns one page of the room's history, decrypted per message.
// A damaged record only affects its own entry.
func (s *MessageStore) ListByRoom(ctx context.Context, room *models.Room, opts ListOptions) (*MessagePage, error) {
	messages, hasMore, err := s.repo.GetRoomMessages(ctx, room.ID, database.MessageQuery{
		Limit:     ClampPageSize(opts.Limit),
		Before:    opts.Before,
		BeforeID:  beforeID(opts),
		Ascending: opts.Order == Asc,
	})
	if err != nil {
		return nil, fmt.Errorf("list messages for room %q: %w", room.Slug, err)
	}

	views := make([]MessageView, len(messages))
	for i := range messages {
		views[i] = s.Read(&messages[i])
	}
	page := &MessagePage{Messages: views, HasMore: hasMore}
	if hasMore && len(messages) > 0 {
		oldest := messages[len(messages)-1]
		if opts.Order == Asc {
			oldest = messages[0]
		}
		page.Next = &Cursor{Before: oldest.Timestamp, BeforeID: oldest.ID}
	}
	return page, nil
}

func beforeID(opts ListOptions) *uuid.UUID {
	if opts.Before == nil {
		return nil
	}
	return opts.BeforeID
}

// Read is the only decrypting path. It never fails: an unreadable record yields
// UndecryptableContent with Undecryptable set.
func (s *MessageStore) Read(message *models.Message) MessageView {
	view := MessageView{
		ID:        message.ID,
		RoomID:    message.RoomID,
		Author:    message.User,
		Timestamp: message.Timestamp,
		Edited:    message.Edited,
		EditedAt:  message.EditedAt,
	}

	logCtx := s.log.WithField("message_id", message.ID)
	if message.EncryptedRecord == nil {
		logCtx.Error("Message has no encrypted record")
		view.Content = UndecryptableContent
		view.Undecryptable = true
		return view
	}

	plaintext, err := s.cipher.Decrypt(message.EncryptedRecord.Ciphertext)
	if err != nil {
		if errors.Is(err, encryption.ErrDecryption) {
			logCtx.WithError(err).Warn("Failed to decrypt message")
		} else {
			logCtx.WithError(err).Error("Unexpected error decrypting message")
		}
		view.Content = UndecryptableContent
		view.Undecryptable = true
		return view
	}

	view.Content = string(plaintext)
	return view
}

func (s *MessageStore) validate(plaintext string) error {
	if strings.TrimSpace(plaintext) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(plaintext) > s.maxContentLength {
		return fmt.Errorf("%w: limit is %d characters", ErrContentTooLong, s.maxContentLength)
	}
	return nil
}
