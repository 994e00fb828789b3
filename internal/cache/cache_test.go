/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testValue struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

func newTestCache(t *testing.T) *RedisCache {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client)
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	stored := testValue{Name: "transfer", Amount: 100}
	require.NoError(t, c.Set(ctx, "test:key", stored, time.Minute))

	var loaded testValue
	require.NoError(t, c.Get(ctx, "test:key", &loaded))
	assert.Equal(t, stored, loaded)
}

func TestCacheMissIsNotAnError(t *testing.T) {
	c := newTestCache(t)

	var loaded testValue
	err := c.Get(context.Background(), "missing:key", &loaded)
	assert.NoError(t, err)
	assert.Zero(t, loaded)
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "test:key", testValue{Name: "gone"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "test:key"))

	var loaded testValue
	require.NoError(t, c.Get(ctx, "test:key", &loaded))
	assert.Zero(t, loaded)
}
