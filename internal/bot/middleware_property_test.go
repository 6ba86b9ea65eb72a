// Property-based tests for middleware access checks.
package bot

import (
	"testing"

	"pgregory.net/rapid"

	"telegram-trivia-bot/internal/config"
)

// TestAdminPermissionCheckProperty checks that a user is treated as admin
// exactly when their ID appears in the configured admin list.
func TestAdminPermissionCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(1, 10).Draw(t, "numAdmins")
		adminIDs := make([]int64, numAdmins)
		for i := 0; i < numAdmins; i++ {
			adminIDs[i] = rapid.Int64Range(1, 1000000000).Draw(t, "adminID")
		}

		cfg := &config.Config{
			Admin: config.AdminConfig{IDs: adminIDs},
		}

		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		expected := false
		for _, id := range adminIDs {
			if id == userID {
				expected = true
				break
			}
		}

		if got := cfg.IsAdmin(userID); got != expected {
			t.Fatalf("admin check mismatch: userID=%d, adminIDs=%v, expected=%v, got=%v",
				userID, adminIDs, expected, got)
		}
	})
}

// TestKnownAdminAlwaysRecognized picks an ID from the configured list and
// verifies it always passes the admin check.
func TestKnownAdminAlwaysRecognized(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(1, 10).Draw(t, "numAdmins")
		adminIDs := make([]int64, numAdmins)
		for i := 0; i < numAdmins; i++ {
			adminIDs[i] = rapid.Int64Range(1, 1000000000).Draw(t, "adminID")
		}

		cfg := &config.Config{
			Admin: config.AdminConfig{IDs: adminIDs},
		}

		idx := rapid.IntRange(0, numAdmins-1).Draw(t, "adminIndex")
		if !cfg.IsAdmin(adminIDs[idx]) {
			t.Fatalf("known admin ID %d should be recognized, adminIDs=%v", adminIDs[idx], adminIDs)
		}
	})
}

// TestWhitelistEnforcementProperty checks that a group chat is allowed
// exactly when its ID appears in the whitelist.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(1, 10).Draw(t, "numChats")
		chatIDs := make([]int64, numChats)
		for i := 0; i < numChats; i++ {
			// Group chat IDs are typically negative
			chatIDs[i] = -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
		}

		cfg := &config.Config{
			Whitelist: config.WhitelistConfig{Chats: chatIDs},
		}

		testChatID := -rapid.Int64Range(1, 1000000000).Draw(t, "testChatID")

		expected := false
		for _, id := range chatIDs {
			if id == testChatID {
				expected = true
				break
			}
		}

		if got := cfg.IsChatAllowed(testChatID); got != expected {
			t.Fatalf("whitelist check mismatch: chatID=%d, whitelist=%v, expected=%v, got=%v",
				testChatID, chatIDs, expected, got)
		}
	})
}

// TestEmptyWhitelistAllowsAllChats verifies the open-by-default behavior
// when no whitelist is configured.
func TestEmptyWhitelistAllowsAllChats(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{
			Whitelist: config.WhitelistConfig{Chats: []int64{}},
		}

		chatID := -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
		if !cfg.IsChatAllowed(chatID) {
			t.Fatalf("with empty whitelist, chat ID %d should be allowed", chatID)
		}
	})
}

// TestPrivateUserCacheRoundTrip verifies that a user marked as seen in a
// group is afterwards allowed in private chat.
func TestPrivateUserCacheRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		AllowPrivateUser(userID)

		if !IsPrivateUserAllowed(userID) {
			t.Fatalf("user %d should be allowed after being cached", userID)
		}
	})
}
