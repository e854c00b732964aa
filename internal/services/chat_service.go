package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/models"
	"quicksell/internal/pagination"
	"quicksell/internal/uuid"
)

const maxMessageLength = 2000

// chatService handles conversations between buyers and sellers.
type chatService struct {
	db *gorm.DB
}

// NewChatService creates a new ChatServicer.
func NewChatService(db *gorm.DB) ChatServicer {
	return &chatService{db: db}
}

// StartChat opens a chat with the seller of a listing, or reuses the one
// the user already has about it, and posts the first message.
func (s *chatService) StartChat(userID uint, listingToken, text string) (*ChatView, error) {
	text, err := validateMessage(text)
	if err != nil {
		return nil, err
	}
	listingUUID, err := uuid.Decode(listingToken)
	if err != nil {
		return nil, apperrors.ErrListingNotFound
	}

	var chat models.Chat
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.Where("uuid = ? AND status = ?", listingUUID, models.ListingStatusActive).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrListingNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if listing.SellerID == userID {
			return apperrors.ErrCannotChatWithSelf
		}

		err := tx.Where("creator_id = ? AND listing_id = ?", userID, listing.ID).First(&chat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			chat = models.Chat{
				CreatorID:      userID,
				InterlocutorID: listing.SellerID,
				ListingID:      &listing.ID,
				Subject:        listing.Title,
			}
			err = tx.Create(&chat).Error
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		return postMessage(tx, &chat, userID, text)
	})
	if err != nil {
		return nil, err
	}
	return s.chatView(userID, chat.ID)
}

// GetUserChats returns the chats the user takes part in, most recently
// active last.
func (s *chatService) GetUserChats(userID uint, page pagination.Request) (*pagination.Page[ChatView], error) {
	base := s.db.Model(&models.Chat{}).Where("creator_id = ? OR interlocutor_id = ?", userID, userID)

	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if page.Beyond(count) {
		return pagination.New([]ChatView{}, count, page), nil
	}

	var chats []models.Chat
	err := s.db.Where("creator_id = ? OR interlocutor_id = ?", userID, userID).
		Preload("Creator").Preload("Interlocutor").Preload("Listing").
		Order("updated_at ASC, id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&chats).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]ChatView, 0, len(chats))
	for i := range chats {
		v, err := s.newChatView(userID, &chats[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return pagination.New(views, count, page), nil
}

// GetMessages returns a page of messages, newest first, and marks the
// other participant's messages as read.
func (s *chatService) GetMessages(userID uint, chatToken string, page pagination.Request) (*pagination.Page[MessageView], error) {
	chat, err := s.findParticipantChat(s.db, userID, chatToken)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var messages []models.Message
	if !page.Beyond(count) {
		err = s.db.Where("chat_id = ?", chat.ID).
			Order("created_at DESC, id DESC").
			Scopes(pagination.Paginate(page)).
			Find(&messages).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := s.db.Model(&models.Message{}).
		Where("chat_id = ? AND author_id <> ? AND read = ?", chat.ID, userID, false).
		UpdateColumn("read", true).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	tokens := map[uint]string{
		chat.CreatorID:      chat.Creator.Token(),
		chat.InterlocutorID: chat.Interlocutor.Token(),
	}
	views := make([]MessageView, len(messages))
	for i, m := range messages {
		views[i] = MessageView{
			Author:      tokens[m.AuthorID],
			Text:        m.Text,
			Read:        m.Read,
			DateCreated: m.CreatedAt,
		}
	}
	return pagination.New(views, count, page), nil
}

// SendMessage posts a message to a chat the user takes part in.
func (s *chatService) SendMessage(userID uint, chatToken, text string) (*MessageView, error) {
	text, err := validateMessage(text)
	if err != nil {
		return nil, err
	}

	var view MessageView
	err = s.db.Transaction(func(tx *gorm.DB) error {
		chat, err := s.findParticipantChat(tx, userID, chatToken)
		if err != nil {
			return err
		}
		if err := postMessage(tx, chat, userID, text); err != nil {
			return err
		}
		author := chat.Creator
		if userID == chat.InterlocutorID {
			author = chat.Interlocutor
		}
		view = MessageView{Author: author.Token(), Text: text, DateCreated: chat.UpdatedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// findParticipantChat loads a chat and checks that userID takes part in it.
func (s *chatService) findParticipantChat(db *gorm.DB, userID uint, token string) (*models.Chat, error) {
	id, err := uuid.Decode(token)
	if err != nil {
		return nil, apperrors.ErrChatNotFound
	}

	var chat models.Chat
	if err := db.Preload("Creator").Preload("Interlocutor").Where("uuid = ?", id).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrChatNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if chat.CreatorID != userID && chat.InterlocutorID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &chat, nil
}

func (s *chatService) chatView(userID, chatID uint) (*ChatView, error) {
	var chat models.Chat
	if err := s.db.Preload("Creator").Preload("Interlocutor").Preload("Listing").First(&chat, chatID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.newChatView(userID, &chat)
}

func (s *chatService) newChatView(userID uint, chat *models.Chat) (*ChatView, error) {
	var unread int64
	if err := s.db.Model(&models.Message{}).
		Where("chat_id = ? AND author_id <> ? AND read = ?", chat.ID, userID, false).
		Count(&unread).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	v := &ChatView{
		ID:           chat.Token(),
		Subject:      chat.Subject,
		Creator:      chat.Creator.Token(),
		Interlocutor: chat.Interlocutor.Token(),
		Unread:       unread,
		DateCreated:  chat.CreatedAt,
		DateUpdated:  chat.UpdatedAt,
	}
	if chat.Listing != nil {
		token := chat.Listing.Token()
		v.Listing = &token
	}
	return v, nil
}

// postMessage stores a message and bumps the chat's updated_at.
func postMessage(tx *gorm.DB, chat *models.Chat, authorID uint, text string) error {
	message := models.Message{ChatID: chat.ID, AuthorID: authorID, Text: text}
	if err := tx.Create(&message).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	chat.UpdatedAt = message.CreatedAt
	if err := tx.Model(chat).UpdateColumn("updated_at", message.CreatedAt).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func validateMessage(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "message text is required")
	}
	if len(text) > maxMessageLength {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "message must be at most 2000 characters")
	}
	return text, nil
}
