package rdx

import (
	"log"
	"os"
	"time"

	"matsuri/globals"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

func init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{Addr: addr})
}

// RdxSet stores a value with a TTL.
func RdxSet(key, value string, ttl time.Duration) error {
	return Conn.Set(globals.Ctx, key, value, ttl).Err()
}

// RdxGet returns the cached value, or "" on miss.
func RdxGet(key string) (string, error) {
	val, err := Conn.Get(globals.Ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// RdxDel drops a key, logging failures instead of propagating them; the
// cache is advisory.
func RdxDel(key string) {
	if err := Conn.Del(globals.Ctx, key).Err(); err != nil {
		log.Printf("redis del %s: %v", key, err)
	}
}

// DirectoryCacheKey holds the serialized attraction directory between
// change-stream updates.
const DirectoryCacheKey = "matsuri:directory"

// DirectoryCacheTTL bounds staleness if the change stream stalls.
const DirectoryCacheTTL = 30 * time.Second
