package clockx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := clockx.NewFake(start)

	require.Equal(t, start, c.Now())
	require.Equal(t, start.Add(time.Minute), c.Advance(time.Minute))
	require.Equal(t, start.Add(time.Minute), c.Now())

	c.Set(start)
	require.Equal(t, start, c.Now())
}

func TestSystemIsUTC(t *testing.T) {
	require.Equal(t, time.UTC, clockx.System{}.Now().Location())
}
