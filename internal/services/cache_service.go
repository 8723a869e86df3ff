package services

import (
	"context"
	"time"

	"gocargo/pkg/cache"

	"github.com/redis/go-redis/v9"
)

// CacheService is the slice of Redis the repositories and the geo index
// depend on. Implementations must be safe for concurrent use.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)

	SAdd(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...interface{}) error
	SIsMember(ctx context.Context, key string, member interface{}) (bool, error)

	GeoAdd(ctx context.Context, key string, location *GeoEntry) error
	GeoRadius(ctx context.Context, key string, lat, lng, radiusKM float64, limit int) ([]*GeoEntry, error)
	GeoRemove(ctx context.Context, key string, members ...string) error

	Publish(ctx context.Context, channel string, message interface{}) error

	Ping(ctx context.Context) error
}

// GeoEntry is one member of a geo index, distance filled on radius reads.
type GeoEntry struct {
	Member     string
	Latitude   float64
	Longitude  float64
	DistanceKM float64
}

type cacheService struct {
	redis *cache.RedisCache
}

func NewCacheService(redis *cache.RedisCache) CacheService {
	return &cacheService{redis: redis}
}

func (c *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return c.redis.Get(ctx, key, dest)
}

func (c *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.redis.Set(ctx, key, value, expiration)
}

func (c *cacheService) Delete(ctx context.Context, keys ...string) error {
	return c.redis.Delete(ctx, keys...)
}

func (c *cacheService) Exists(ctx context.Context, key string) (bool, error) {
	return c.redis.Exists(ctx, key)
}

func (c *cacheService) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.redis.SetNX(ctx, key, value, expiration)
}

func (c *cacheService) SAdd(ctx context.Context, key string, members ...interface{}) error {
	return c.redis.SAdd(ctx, key, members...)
}

func (c *cacheService) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.redis.SMembers(ctx, key)
}

func (c *cacheService) SRem(ctx context.Context, key string, members ...interface{}) error {
	return c.redis.SRem(ctx, key, members...)
}

func (c *cacheService) SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	return c.redis.SIsMember(ctx, key, member)
}

func (c *cacheService) GeoAdd(ctx context.Context, key string, entry *GeoEntry) error {
	return c.redis.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      entry.Member,
		Latitude:  entry.Latitude,
		Longitude: entry.Longitude,
	})
}

func (c *cacheService) GeoRadius(ctx context.Context, key string, lat, lng, radiusKM float64, limit int) ([]*GeoEntry, error) {
	locations, err := c.redis.GeoRadius(ctx, key, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKM,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*GeoEntry, len(locations))
	for i, loc := range locations {
		entries[i] = &GeoEntry{
			Member:     loc.Name,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			DistanceKM: loc.Dist,
		}
	}
	return entries, nil
}

func (c *cacheService) GeoRemove(ctx context.Context, key string, members ...string) error {
	return c.redis.GeoRemove(ctx, key, members...)
}

func (c *cacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.redis.Publish(ctx, channel, message)
}

func (c *cacheService) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx)
}
