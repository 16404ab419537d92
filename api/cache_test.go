package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpCacheGetSet(t *testing.T) {
	c := newOpCache(time.Minute)

	_, ok := c.get("tasks:all:0:10")
	assert.False(t, ok)

	c.set("tasks:all:0:10", []byte(`{"tasks":[]}`))
	data, ok := c.get("tasks:all:0:10")
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"tasks":[]}`), data)
}

func TestOpCacheExpiry(t *testing.T) {
	c := newOpCache(10 * time.Millisecond)
	c.set("tasks:id:1", []byte(`{}`))

	time.Sleep(30 * time.Millisecond)
	_, ok := c.get("tasks:id:1")
	assert.False(t, ok)
}

func TestOpCacheEvictAll(t *testing.T) {
	c := newOpCache(time.Minute)
	c.set("tasks:all:0:10", []byte(`{}`))
	c.set("tasks:id:1", []byte(`{}`))

	c.evictAll()

	_, ok := c.get("tasks:all:0:10")
	assert.False(t, ok)
	_, ok = c.get("tasks:id:1")
	assert.False(t, ok)
}
