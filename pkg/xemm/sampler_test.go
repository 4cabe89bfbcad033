package xemm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantedge/xemm-core/pkg/xemm"
	"github.com/quantedge/xemm-core/pkg/xemmtest"
)

func TestPriceSamplerSmoothedTopWithNoHistoryReturnsCurrent(t *testing.T) {
	s := xemm.NewPriceSampler()
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")

	bid, ask := s.SmoothedTop(pair, xemmtest.Number(100), xemmtest.Number(101))
	assert.True(t, bid.Compare(xemmtest.Number(100)) == 0)
	assert.True(t, ask.Compare(xemmtest.Number(101)) == 0)
}

func TestPriceSamplerWidensBidNarrowsAsk(t *testing.T) {
	s := xemm.NewPriceSampler()
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	base := time.Unix(1_700_000_000, 0)

	s.MaybeSample(pair, base, xemmtest.Number(100), xemmtest.Number(105))
	s.MaybeSample(pair, base.Add(xemm.SampleInterval), xemmtest.Number(102), xemmtest.Number(103))

	bid, ask := s.SmoothedTop(pair, xemmtest.Number(99), xemmtest.Number(106))

	assert.True(t, bid.Compare(xemmtest.Number(102)) == 0, "widest-seen bid should win")
	assert.True(t, ask.Compare(xemmtest.Number(103)) == 0, "narrowest-seen ask should win")
}

func TestPriceSamplerSkipsSamplesWithinSameSlot(t *testing.T) {
	s := xemm.NewPriceSampler()
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	base := time.Unix(1_700_000_000, 0)

	s.MaybeSample(pair, base, xemmtest.Number(100), xemmtest.Number(101))
	s.MaybeSample(pair, base.Add(time.Second), xemmtest.Number(50), xemmtest.Number(200))

	assert.Equal(t, 1, s.QueueLen(pair))

	bid, ask := s.SmoothedTop(pair, xemmtest.Number(100), xemmtest.Number(101))
	assert.True(t, bid.Compare(xemmtest.Number(100)) == 0, "second call within the same slot must be dropped")
	assert.True(t, ask.Compare(xemmtest.Number(101)) == 0)
}

func TestPriceSamplerWindowBounded(t *testing.T) {
	s := xemm.NewPriceSampler()
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	base := time.Unix(1_700_000_000, 0)

	for i := 0; i < xemm.SampleWindow+5; i++ {
		s.MaybeSample(pair, base.Add(time.Duration(i)*xemm.SampleInterval), xemmtest.Number(100), xemmtest.Number(101))
	}

	assert.Equal(t, xemm.SampleWindow, s.QueueLen(pair))
}
