package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

func TestParsePairs(t *testing.T) {
	reqs, err := parsePairs("USD_ETH, ETH_USD", "2")
	require.NoError(t, err)
	assert.Equal(t, []domain.SwapRequest{
		{From: "USD", To: "ETH", Amount: "2"},
		{From: "ETH", To: "USD", Amount: "2"},
	}, reqs)

	_, err = parsePairs("USDETH", "1")
	assert.Error(t, err)
	_, err = parsePairs("USD_", "1")
	assert.Error(t, err)
}

func TestCountersSummary(t *testing.T) {
	c := &counters{statuses: make(map[string]int)}
	c.status("settled")
	c.status("settled")
	assert.Equal(t, "settled=2", c.summary())
}
