package redis

import "github.com/redis/go-redis/v9"

// dequeueFrontScript removes ARGV[1] from the queue only if it is the lowest-scored
// member, so two matchers can never both claim the same waiting game.
// KEYS[1] = queue zset, KEYS[2] = entry key. Returns 1 if removed, 0 otherwise.
var dequeueFrontScript = redis.NewScript(`
local front = redis.call('ZRANGE', KEYS[1], 0, 0)
if #front == 0 or front[1] ~= ARGV[1] then
	return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('DEL', KEYS[2])
return 1
`)
