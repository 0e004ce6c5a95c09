package redis

import (
	"fmt"

	"leetcode-reminder/internal/domain/model"
)

const usersSetKey = "lc:users"

func userKey(userID int64) string { return fmt.Sprintf("lc:user:%d", userID) }

func stateKey(userID int64, date string) string { return fmt.Sprintf("lc:state:%d:%s", userID, date) }

func cooldownKey(userID int64, scope model.CooldownScope) string {
	return fmt.Sprintf("lc:cooldown:%s:%d", scope, userID)
}

func resultKey(userID int64, date string) string { return fmt.Sprintf("lc:check_result:%d:%s", userID, date) }

func failureKey(userID int64, date string) string { return fmt.Sprintf("lc:check_error:%d:%s", userID, date) }
