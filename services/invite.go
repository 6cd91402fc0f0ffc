package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/leyuan/points-mall/models"
)

// Unambiguous alphabet: no 0/O or 1/I/L.
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	inviteCodeLength   = 8
	inviteMaxAttempts  = 10
	orderRandomDigits  = 6
	orderNoTimeLayout  = "20060102150405"
	orderNoPrefixToken = "ORD"
)

// AllocateInviteCode generates a fresh invite code not yet held by any user.
// Generation is retried a bounded number of times; if every attempt collides
// the allocator gives up with ErrAllocationExhausted rather than looping
// forever.
func AllocateInviteCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < inviteMaxAttempts; attempt++ {
		code, err := randomString(inviteAlphabet, inviteCodeLength)
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.User{}).Where("invite_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrAllocationExhausted
}

// FindByInviteCode resolves an invite code to its owner.
func FindByInviteCode(db *gorm.DB, code string) (*models.User, error) {
	var user models.User
	if err := db.Where("invite_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// NewOrderNo builds an order number: a fixed prefix, a second-resolution
// timestamp, and random digits to disambiguate orders created in the same
// second.
func NewOrderNo() string {
	suffix := make([]byte, orderRandomDigits)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			suffix[i] = '0'
			continue
		}
		suffix[i] = byte('0' + n.Int64())
	}
	return fmt.Sprintf("%s%s%s", orderNoPrefixToken, time.Now().Format(orderNoTimeLayout), suffix)
}

func randomString(alphabet string, length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
