package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingSecret_Valid(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var absent *PendingSecret
	assert.False(t, absent.Valid(now))

	p := &PendingSecret{Hash: "abc", ExpiresAt: now.Add(time.Minute)}
	assert.True(t, p.Valid(now))
	assert.False(t, p.Valid(now.Add(time.Minute)), "expiry instant itself is not valid")
	assert.False(t, (&PendingSecret{ExpiresAt: now.Add(time.Minute)}).Valid(now))
}
