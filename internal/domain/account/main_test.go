package account_test

import (
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"memberdesk/internal/domain/account"
)

func TestMain(m *testing.M) {
	account.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}
