package redis

import (
	"fmt"

	"github.com/mcoot/sagespace/internal/model"
)

// Key prefix for all account data
const keyPrefix = "sagespace"

// accountKey returns the Redis key for an Account
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}

// emailIndexKey returns the Redis key for the email -> account_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// usernameIndexKey returns the Redis key for the username -> account_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// messagesKey returns the Redis key for the LIST of an account's messages
func messagesKey(id model.AccountID) string {
	return fmt.Sprintf("%s:messages:%s", keyPrefix, id)
}
