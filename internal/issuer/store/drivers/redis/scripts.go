package redis

import "github.com/redis/go-redis/v9"

// Every state transition runs as one Lua script so it is atomic on the
// server. Scripts answer with a short status string that the driver maps to
// store errors. Sweep scripts derive record keys from a prefix argument, so
// the driver targets a single Redis node rather than a cluster.
const (
	statusOK       = "OK"
	statusNotFound = "NOT_FOUND"
	statusConflict = "CONFLICT"
	statusExists   = "EXISTS"
)

// KEYS: code, zset. ARGV: id, code_hash, tx_code_hash, credential_type,
// state, created_at, expires_at, redeemed_at, consumed_at.
var createCodeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 'EXISTS'
end
redis.call('HSET', KEYS[1],
  'id', ARGV[1], 'code_hash', ARGV[2], 'tx_code_hash', ARGV[3],
  'credential_type', ARGV[4], 'state', ARGV[5],
  'created_at', ARGV[6], 'expires_at', ARGV[7])
if ARGV[8] ~= '' then
  redis.call('HSET', KEYS[1], 'redeemed_at', ARGV[8])
end
if ARGV[9] ~= '' then
  redis.call('HSET', KEYS[1], 'consumed_at', ARGV[9])
end
redis.call('ZADD', KEYS[2], ARGV[7], ARGV[2])
return 'OK'
`)

// KEYS: code, token, active codes, tokens. ARGV: now, token expires_at,
// code_hash, token id, token_hash, c_nonce, c_nonce_expires_at, created_at.
var redeemCodeScript = redis.NewScript(`
local code = redis.call('HMGET', KEYS[1], 'state', 'expires_at')
if not code[1] then
  return 'NOT_FOUND'
end
if code[1] ~= 'ISSUED' or tonumber(ARGV[1]) > tonumber(code[2]) then
  return 'CONFLICT'
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 'EXISTS'
end
redis.call('HSET', KEYS[1],
  'state', 'REDEEMED', 'redeemed_at', ARGV[1],
  'expires_at', ARGV[2], 'token_hash', ARGV[5])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[3])
redis.call('HSET', KEYS[2],
  'id', ARGV[4], 'token_hash', ARGV[5], 'code_hash', ARGV[3],
  'c_nonce', ARGV[6], 'c_nonce_expires_at', ARGV[7],
  'created_at', ARGV[8], 'expires_at', ARGV[2])
redis.call('ZADD', KEYS[4], ARGV[2], ARGV[5])
return 'OK'
`)

// KEYS: token, code, active codes, terminal codes. ARGV: now, code_hash.
var consumeTokenScript = redis.NewScript(`
local tok = redis.call('HMGET', KEYS[1], 'code_hash', 'expires_at', 'used_at')
if not tok[1] then
  return 'NOT_FOUND'
end
if tok[3] or tok[1] ~= ARGV[2] or tonumber(ARGV[1]) > tonumber(tok[2]) then
  return 'CONFLICT'
end
local code = redis.call('HMGET', KEYS[2], 'state', 'expires_at')
if code[1] ~= 'REDEEMED' then
  return 'CONFLICT'
end
redis.call('HSET', KEYS[1], 'used_at', ARGV[1])
redis.call('HSET', KEYS[2], 'state', 'CONSUMED', 'consumed_at', ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[2])
redis.call('ZADD', KEYS[4], code[2], ARGV[2])
return 'OK'
`)

// KEYS: token. ARGV: c_nonce, c_nonce_expires_at.
var updateNonceScript = redis.NewScript(`
local tok = redis.call('HMGET', KEYS[1], 'token_hash', 'used_at')
if not tok[1] then
  return 'NOT_FOUND'
end
if tok[2] then
  return 'CONFLICT'
end
redis.call('HSET', KEYS[1], 'c_nonce', ARGV[1], 'c_nonce_expires_at', ARGV[2])
return 'OK'
`)

// KEYS: active codes, terminal codes. ARGV: now, code key prefix.
var expireStaleScript = redis.NewScript(`
local hashes = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local n = 0
for _, h in ipairs(hashes) do
  local key = ARGV[2] .. h
  local exp = redis.call('HGET', key, 'expires_at')
  if exp then
    redis.call('HSET', key, 'state', 'EXPIRED')
    redis.call('ZADD', KEYS[2], exp, h)
    n = n + 1
  end
  redis.call('ZREM', KEYS[1], h)
end
return n
`)

// KEYS: terminal codes, tokens. ARGV: cutoff, code key prefix, token key prefix.
var deleteTerminalScript = redis.NewScript(`
local hashes = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local n = 0
for _, h in ipairs(hashes) do
  local key = ARGV[2] .. h
  local th = redis.call('HGET', key, 'token_hash')
  if th then
    redis.call('DEL', ARGV[3] .. th)
    redis.call('ZREM', KEYS[2], th)
  end
  n = n + redis.call('DEL', key)
  redis.call('ZREM', KEYS[1], h)
end
return n
`)

// KEYS: tokens. ARGV: now, token key prefix.
var deleteExpiredTokensScript = redis.NewScript(`
local hashes = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local n = 0
for _, h in ipairs(hashes) do
  n = n + redis.call('DEL', ARGV[2] .. h)
  redis.call('ZREM', KEYS[1], h)
end
return n
`)
