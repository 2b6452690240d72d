//go:build integration

package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type RedisAllocatorSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
	alloc     *RedisAllocator
}

func TestRedisAllocatorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAllocatorSuite))
}

func (s *RedisAllocatorSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	s.client, err = DialRedis(ctx, url)
	s.Require().NoError(err)
	s.alloc = NewRedisAllocator(s.client)
}

func (s *RedisAllocatorSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *RedisAllocatorSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *RedisAllocatorSuite) TestStartsAtOneAndIncrements() {
	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		n, err := s.alloc.Next(ctx, "contractNumber")
		s.Require().NoError(err)
		s.Equal(want, n)
	}

	raw, err := s.client.Get(ctx, "counter:contractNumber").Int64()
	s.Require().NoError(err)
	s.Equal(int64(3), raw)
}

func (s *RedisAllocatorSuite) TestConcurrentCallersGetDistinctValues() {
	ctx := context.Background()
	const callers = 50

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.alloc.Next(ctx, "contractNumber")
			s.NoError(err)
			mu.Lock()
			seen[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(seen, callers)
}

func (s *RedisAllocatorSuite) TestDialRejectsBadURL() {
	_, err := DialRedis(context.Background(), "not-a-url")
	s.Error(err)
}
