package useraccount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/d-kuro/useraccount/pkg/constants"
)

func TestRefreshDelay(t *testing.T) {
	tests := []struct {
		secs int64
		want time.Duration
	}{
		{secs: 1000, want: 933334 * time.Millisecond},
		{secs: 3600, want: 3533334 * time.Millisecond},
		{secs: 126, want: 60000 * time.Millisecond},
		{secs: 127, want: 60334 * time.Millisecond},
		{secs: 10, want: 60000 * time.Millisecond},
		{secs: 0, want: 60000 * time.Millisecond},
		{secs: -5, want: 60000 * time.Millisecond},
	}

	for _, tt := range tests {
		got := RefreshDelay(tt.secs, constants.RefreshMargin, constants.RefreshFloor)
		assert.Equal(t, tt.want, got, "secs=%d", tt.secs)
	}
}

func TestRealScheduler(t *testing.T) {
	fired := make(chan struct{})
	timer := realScheduler{}.AfterFunc(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, timer.Stop())

	timer = realScheduler{}.AfterFunc(time.Hour, func() {})
	assert.True(t, timer.Stop())
}
