package archive

import (
	"context"
	"fmt"

	"ticket-ledger/internal/ledger"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "ledger"

// RedisArchive keeps each chain as a Redis list of CBOR-encoded blocks in
// chain order under <prefix>:blocks:<chainID>. Known chain ids are kept in
// the set <prefix>:chains.
type RedisArchive struct {
	redis  redis.Cmdable
	prefix string
}

func NewRedisArchive(client redis.Cmdable, prefix string) *RedisArchive {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisArchive{redis: client, prefix: prefix}
}

func (a *RedisArchive) blocksKey(chainID string) string {
	return fmt.Sprintf("%s:blocks:%s", a.prefix, chainID)
}

func (a *RedisArchive) chainsKey() string {
	return a.prefix + ":chains"
}

func (a *RedisArchive) AppendBlock(ctx context.Context, chainID string, b ledger.Block) error {
	data, err := EncodeBlock(b)
	if err != nil {
		return err
	}

	if b.Index == 0 {
		if err := a.redis.SAdd(ctx, a.chainsKey(), chainID).Err(); err != nil {
			return fmt.Errorf("register chain %s: %w", chainID, err)
		}
	}
	if err := a.redis.RPush(ctx, a.blocksKey(chainID), data).Err(); err != nil {
		return fmt.Errorf("archive block %d: %w", b.Index, err)
	}
	return nil
}

func (a *RedisArchive) LoadChain(ctx context.Context, chainID string) ([]ledger.Block, error) {
	items, err := a.redis.LRange(ctx, a.blocksKey(chainID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load chain %s: %w", chainID, err)
	}

	blocks := make([]ledger.Block, 0, len(items))
	for i, item := range items {
		b, err := DecodeBlock([]byte(item))
		if err != nil {
			return nil, fmt.Errorf("load chain %s: element %d: %w", chainID, i, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (a *RedisArchive) Chains(ctx context.Context) ([]string, error) {
	chains, err := a.redis.SMembers(ctx, a.chainsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	return chains, nil
}

func (a *RedisArchive) Ping(ctx context.Context) error {
	return a.redis.Ping(ctx).Err()
}
