package services

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"quicksell/internal/models"
	"quicksell/internal/pagination"
	"quicksell/internal/testutil"
)

func TestStartChat(t *testing.T) {
	t.Run("creates_then_reuses", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewChatService(db)
		seller := testutil.CreateTestUser(t, db)
		buyer := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

		first, err := svc.StartChat(buyer.ID, listing.Token(), "Is it available?")
		testutil.AssertNoError(t, err)
		if first.Subject != listing.Title {
			t.Errorf("expected subject %q, got %q", listing.Title, first.Subject)
		}
		if first.Creator != buyer.Token() || first.Interlocutor != seller.Token() {
			t.Error("expected buyer as creator and seller as interlocutor")
		}
		if first.Listing == nil || *first.Listing != listing.Token() {
			t.Errorf("expected listing %s, got %v", listing.Token(), first.Listing)
		}

		second, err := svc.StartChat(buyer.ID, listing.Token(), "Hello again")
		testutil.AssertNoError(t, err)
		if second.ID != first.ID {
			t.Error("expected the existing chat to be reused")
		}

		var messages int64
		db.Model(&models.Message{}).Count(&messages)
		if messages != 2 {
			t.Errorf("expected 2 messages, got %d", messages)
		}
	})

	t.Run("own_listing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewChatService(db)
		seller := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

		_, err := svc.StartChat(seller.ID, listing.Token(), "hi")
		testutil.AssertAppError(t, err, "CANNOT_CHAT_WITH_SELF")
	})

	t.Run("closed_listing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewChatService(db)
		seller := testutil.CreateTestUser(t, db)
		buyer := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)
		db.Model(listing).Update("status", models.ListingStatusClosed)

		_, err := svc.StartChat(buyer.ID, listing.Token(), "hi")
		testutil.AssertAppError(t, err, "LISTING_NOT_FOUND")
	})

	t.Run("message_validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewChatService(db)

		_, err := svc.StartChat(1, "anything", "   ")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		_, err = svc.StartChat(1, "anything", strings.Repeat("x", 2001))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetMessages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewChatService(db)
	seller := testutil.CreateTestUser(t, db)
	buyer := testutil.CreateTestUser(t, db)
	stranger := testutil.CreateTestUser(t, db)
	listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

	chat, err := svc.StartChat(buyer.ID, listing.Token(), "first")
	testutil.AssertNoError(t, err)
	_, err = svc.SendMessage(buyer.ID, chat.ID, "second")
	testutil.AssertNoError(t, err)

	chats, err := svc.GetUserChats(seller.ID, pagination.Request{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if chats.Count != 1 || chats.Results[0].Unread != 2 {
		t.Fatalf("expected one chat with 2 unread, got %+v", chats.Results)
	}

	page, err := svc.GetMessages(seller.ID, chat.ID, pagination.Request{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if page.Count != 2 || page.Results[0].Text != "second" {
		t.Errorf("expected newest message first, got %+v", page.Results)
	}
	if page.Results[0].Author != buyer.Token() {
		t.Errorf("expected author %s, got %s", buyer.Token(), page.Results[0].Author)
	}

	chats, err = svc.GetUserChats(seller.ID, pagination.Request{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if chats.Results[0].Unread != 0 {
		t.Errorf("expected messages to be marked read, got %d unread", chats.Results[0].Unread)
	}

	_, err = svc.GetMessages(stranger.ID, chat.ID, pagination.Request{Page: 1, PageSize: 10})
	testutil.AssertAppError(t, err, "FORBIDDEN")
	_, err = svc.SendMessage(stranger.ID, chat.ID, "hi")
	testutil.AssertAppError(t, err, "FORBIDDEN")
	_, err = svc.GetMessages(seller.ID, "nope", pagination.Request{Page: 1, PageSize: 10})
	testutil.AssertAppError(t, err, "CHAT_NOT_FOUND")
}

func TestGetUserChatsEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewChatService(db)
	user := testutil.CreateTestUser(t, db)

	page, err := svc.GetUserChats(user.ID, pagination.Request{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if page.Count != 0 || page.Results == nil || len(page.Results) != 0 {
		t.Errorf("expected an empty page, got %+v", page)
	}
}

func TestChatPagesPastTheEnd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewChatService(db)
	seller := testutil.CreateTestUser(t, db)
	buyer := testutil.CreateTestUser(t, db)
	listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

	chat, err := svc.StartChat(buyer.ID, listing.Token(), "hello")
	testutil.AssertNoError(t, err)

	// (page-1)*size does not fit in an int for this page.
	huge := math.MaxInt / 5
	requestURL, _ := url.Parse("http://testserver/api/v1/chats?page=" + strconv.Itoa(huge))
	req := pagination.Request{Page: huge, PageSize: 10, URL: requestURL}

	chats, err := svc.GetUserChats(buyer.ID, req)
	testutil.AssertNoError(t, err)
	if chats.Count != 1 || len(chats.Results) != 0 {
		t.Errorf("expected no chats past the last page, got %d of %d", len(chats.Results), chats.Count)
	}
	if chats.Next != nil {
		t.Errorf("expected no next link, got %s", *chats.Next)
	}

	messages, err := svc.GetMessages(seller.ID, chat.ID, req)
	testutil.AssertNoError(t, err)
	if messages.Count != 1 || len(messages.Results) != 0 {
		t.Errorf("expected no messages past the last page, got %d of %d", len(messages.Results), messages.Count)
	}

	messages, err = svc.GetMessages(seller.ID, chat.ID, pagination.Request{Page: 2, PageSize: 10})
	testutil.AssertNoError(t, err)
	if len(messages.Results) != 0 {
		t.Errorf("expected page 2 to be empty, got %+v", messages.Results)
	}
}
