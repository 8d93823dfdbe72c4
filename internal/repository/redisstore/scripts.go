package redisstore

import "github.com/redis/go-redis/v9"

// incrementScript bumps all three counters, the updated timestamp and the
// leaderboard entries in one atomic step. A v1 hash without totalGamesWon
// is upgraded first so the legacy gamesWon value is not lost.
//
// KEYS: score hash, lifetime zset, day zset, week zset
// ARGV: delta, updatedAtMs, uid, schemaVersion
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
if redis.call('HEXISTS', KEYS[1], 'totalGamesWon') == 0 then
	local legacy = redis.call('HGET', KEYS[1], 'gamesWon') or '0'
	redis.call('HSET', KEYS[1], 'totalGamesWon', legacy, 'schemaVersion', ARGV[4])
	redis.call('HDEL', KEYS[1], 'gamesWon')
end
local delta = tonumber(ARGV[1])
local total = redis.call('HINCRBY', KEYS[1], 'totalGamesWon', delta)
local day = redis.call('HINCRBY', KEYS[1], 'gamesWonDay', delta)
local week = redis.call('HINCRBY', KEYS[1], 'gamesWonWeek', delta)
local updated = tonumber(redis.call('HGET', KEYS[1], 'updatedAtMs') or '0')
if tonumber(ARGV[2]) > updated then
	redis.call('HSET', KEYS[1], 'updatedAtMs', ARGV[2])
end
redis.call('ZADD', KEYS[2], total, ARGV[3])
redis.call('ZADD', KEYS[3], day, ARGV[3])
redis.call('ZADD', KEYS[4], week, ARGV[3])
return 1
`)

// createScript writes a hash and its leaderboard entries unless the user exists.
//
// KEYS: score hash, lifetime zset, day zset, week zset
// ARGV: uid, schemaVersion, createdAtMs, updatedAtMs, total, day, week
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'uid', ARGV[1],
	'totalGamesWon', ARGV[5],
	'gamesWonDay', ARGV[6],
	'gamesWonWeek', ARGV[7],
	'schemaVersion', ARGV[2],
	'createdAtMs', ARGV[3],
	'updatedAtMs', ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[5], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[6], ARGV[1])
redis.call('ZADD', KEYS[4], ARGV[7], ARGV[1])
return 1
`)

// resetScript zeroes one window counter for a chunk of users. Missing hashes are
// skipped so a reset never resurrects a deleted user.
//
// KEYS: window zset, then one score hash per uid
// ARGV: hash field, then the uids in KEYS order
var resetScript = redis.NewScript(`
local field = ARGV[1]
local n = 0
for i = 2, #KEYS do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		redis.call('HSET', KEYS[i], field, 0)
		redis.call('ZADD', KEYS[1], 0, ARGV[i])
		n = n + 1
	end
end
return n
`)

// upgradeScript rewrites a v1 hash (only gamesWon) as a v2 hash and ranks it in
// all three windows. v2 hashes are left alone.
//
// KEYS: score hash, lifetime zset, day zset, week zset
// ARGV: uid, schemaVersion
var upgradeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 or redis.call('HEXISTS', KEYS[1], 'totalGamesWon') == 1 then
	return 0
end
local total = redis.call('HGET', KEYS[1], 'gamesWon') or '0'
local day = redis.call('HGET', KEYS[1], 'gamesWonDay') or '0'
local week = redis.call('HGET', KEYS[1], 'gamesWonWeek') or '0'
redis.call('HSET', KEYS[1],
	'uid', ARGV[1],
	'totalGamesWon', total,
	'gamesWonDay', day,
	'gamesWonWeek', week,
	'schemaVersion', ARGV[2])
redis.call('HDEL', KEYS[1], 'gamesWon')
redis.call('ZADD', KEYS[2], total, ARGV[1])
redis.call('ZADD', KEYS[3], day, ARGV[1])
redis.call('ZADD', KEYS[4], week, ARGV[1])
return 1
`)
