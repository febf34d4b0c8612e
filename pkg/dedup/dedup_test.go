package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestDeduper_TTL(t *testing.T) {
	c := &clock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	d := New(time.Minute, 100)
	d.now = c.now

	assert.True(t, d.ShouldProcess("a"))
	assert.False(t, d.ShouldProcess("a"))

	c.t = c.t.Add(59 * time.Second)
	assert.False(t, d.ShouldProcess("a"))

	c.t = c.t.Add(2 * time.Second)
	assert.True(t, d.ShouldProcess("a"), "expired ids are processed again")

	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))
}

func TestDeduper_BoundedSize(t *testing.T) {
	c := &clock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	d := New(time.Hour, 3)
	d.now = c.now

	for i := 0; i < 10; i++ {
		c.t = c.t.Add(time.Second)
		assert.True(t, d.ShouldProcess(fmt.Sprintf("id-%d", i)))
	}
	assert.Equal(t, 3, d.Len())
	assert.False(t, d.ShouldProcess("id-9"), "newest ids survive eviction")
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key([]byte(`{"a":1}`)), Key([]byte(`{"a":1}`)))
	assert.NotEqual(t, Key([]byte(`{"a":1}`)), Key([]byte(`{"a":2}`)))
	assert.Len(t, Key(nil), 64)
}
