package state

import "github.com/redis/go-redis/v9"

// Lua scripts for multi-step Redis operations that must not interleave with
// worker writes.

// clearRegistryScript pops every member of a registry and deletes the job
// records it referenced.
// KEYS[1] = registry sorted set key
// ARGV[1] = job key prefix
var clearRegistryScript = redis.NewScript(`
local registryKey = KEYS[1]
local prefix = ARGV[1]
local count = 0
while true do
    local popped = redis.call('ZPOPMIN', registryKey)
    if #popped == 0 then
        break
    end
    local jobID = popped[1]
    redis.call('DEL', prefix .. jobID)
    redis.call('DEL', prefix .. jobID .. ':dependents')
    count = count + 1
end
return count
`)

// clearQueueScript pops every entry of a queue list and deletes the job
// records it referenced.
// KEYS[1] = queue list key
// ARGV[1] = job key prefix
var clearQueueScript = redis.NewScript(`
local queueKey = KEYS[1]
local prefix = ARGV[1]
local count = 0
while true do
    local jobID = redis.call('LPOP', queueKey)
    if not jobID then
        break
    end
    redis.call('DEL', prefix .. jobID)
    redis.call('DEL', prefix .. jobID .. ':dependents')
    count = count + 1
end
return count
`)

// requeueJobScript moves a job from its failed registry back to the tail of
// its queue. Returns 0 when the job is not in the failed registry.
// KEYS[1] = job hash key
// KEYS[2] = failed registry key
// KEYS[3] = queue list key
// ARGV[1] = job ID
// ARGV[2] = enqueued_at timestamp
var requeueJobScript = redis.NewScript(`
local jobKey = KEYS[1]
local failedKey = KEYS[2]
local queueKey = KEYS[3]
local jobID = ARGV[1]

local removed = redis.call('ZREM', failedKey, jobID)
if removed == 0 then
    return 0
end
redis.call('HSET', jobKey, 'status', 'queued', 'enqueued_at', ARGV[2])
redis.call('HDEL', jobKey, 'exc_info', 'started_at', 'ended_at')
redis.call('RPUSH', queueKey, jobID)
return 1
`)

// deleteJobScript removes a job from the queue list and every registry of its
// queue, then deletes its record.
// KEYS[1] = job hash key
// KEYS[2] = queue list key
// KEYS[3..N] = registry keys
// ARGV[1] = job ID
var deleteJobScript = redis.NewScript(`
local jobKey = KEYS[1]
local jobID = ARGV[1]
redis.call('LREM', KEYS[2], 0, jobID)
for i = 3, #KEYS do
    redis.call('ZREM', KEYS[i], jobID)
end
redis.call('DEL', jobKey)
redis.call('DEL', jobKey .. ':dependents')
return 1
`)
