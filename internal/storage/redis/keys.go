package redis

import (
	"fmt"

	"github.com/mcoot/battleship-go/internal/model"
)

// Key prefix for all battleship data
const keyPrefix = "bship"

func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey is keyed by username since that is the only lookup
func registeredPlayerKey(username string) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, username)
}

func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

func gameDataKey(id model.GameID) string {
	return fmt.Sprintf("%s:game_data:%s", keyPrefix, id)
}

// roomKey maps a room to its game id. Claimed with SETNX so rooms are unique.
func roomKey(room model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, room)
}

// playerGamesKey is the SET of every game a player has been seated in
func playerGamesKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_games:%s", keyPrefix, id)
}

// playerActiveGamesKey is the SET of a player's games with status active
func playerActiveGamesKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_active:%s", keyPrefix, id)
}

// queueKey is a ZSET of waiting game ids scored by queueSeqKey
func queueKey() string {
	return fmt.Sprintf("%s:queue", keyPrefix)
}

func queueSeqKey() string {
	return fmt.Sprintf("%s:queue:seq", keyPrefix)
}

func queueEntryKey(id model.GameID) string {
	return fmt.Sprintf("%s:queue:entry:%s", keyPrefix, id)
}

// statsKey is a HASH with wins and losses fields
func statsKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:stats:%s", keyPrefix, id)
}
