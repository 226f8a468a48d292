package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medadhere/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetDrugSearch(ctx context.Context, searchHash string, results interface{}, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal drug search results: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("drugsearch:%s", searchHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set drug search cache: %w", err)
	}

	logger.Debug("Drug search cached", zap.String("search_hash", searchHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetDrugSearch(ctx context.Context, searchHash string, results interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("drugsearch:%s", searchHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get drug search cache: %w", err)
	}

	err = json.Unmarshal(data, results)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal drug search results: %w", err)
	}

	logger.Debug("Drug search cache hit", zap.String("search_hash", searchHash))
	return true, nil
}

func (c *Client) Health(ctx context.Context) error {
	_, err := c.client.Ping(ctx).Result()
	return err
}
