package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateInviteCode(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(countRows(0))

	code, err := AllocateInviteCode(db)
	require.NoError(t, err)
	assert.Len(t, code, inviteCodeLength)
	for _, r := range code {
		assert.Contains(t, inviteAlphabet, string(r))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateInviteCodeRetriesOnCollision(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(countRows(0))

	code, err := AllocateInviteCode(db)
	require.NoError(t, err)
	assert.Len(t, code, inviteCodeLength)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateInviteCodeExhausted(t *testing.T) {
	db, mock := setupTestDB(t)

	for i := 0; i < inviteMaxAttempts; i++ {
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
			WillReturnRows(countRows(1))
	}

	_, err := AllocateInviteCode(db)
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteAlphabetAvoidsAmbiguousGlyphs(t *testing.T) {
	for _, forbidden := range []string{"0", "O", "1", "I", "L"} {
		assert.NotContains(t, inviteAlphabet, forbidden)
	}
}

func TestNewOrderNo(t *testing.T) {
	no := NewOrderNo()

	assert.True(t, strings.HasPrefix(no, orderNoPrefixToken))
	assert.Len(t, no, len(orderNoPrefixToken)+len(orderNoTimeLayout)+orderRandomDigits)
	for _, r := range no[len(orderNoPrefixToken):] {
		assert.True(t, r >= '0' && r <= '9', "order no contains non-digit: %c", r)
	}
}

func TestNewOrderNoDisambiguates(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[NewOrderNo()] = true
	}
	// 6 random digits make same-second collisions across 50 draws unlikely
	assert.Greater(t, len(seen), 45)
}
