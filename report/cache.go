package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"settlement/entity"
	"settlement/monitoring"
	"slices"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/redis/go-redis/v9"
)

// CachedEngine memoizes summaries in Redis. The key covers every (booking id,
// version) pair of the snapshot, so any write to a booking yields a new key
// and stale entries simply expire.
type CachedEngine struct {
	engine  Engine
	redis   *redis.Client
	ttl     time.Duration
	monitor *monitoring.Monitor
}

func NewCachedEngine(engine Engine, redisClient *redis.Client, ttl time.Duration, monitor *monitoring.Monitor) *CachedEngine {
	return &CachedEngine{
		engine:  engine,
		redis:   redisClient,
		ttl:     ttl,
		monitor: monitor,
	}
}

// Summarize serves from Redis when possible. Cache failures are logged and
// the summary is computed directly.
func (c *CachedEngine) Summarize(ctx context.Context, campaignID string, bookings []entity.Booking, w entity.Window) (entity.FinancialSummary, error) {
	start := time.Now()
	key := SummaryKey(campaignID, c.engine.FeeRate().String(), bookings, w)

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var s entity.FinancialSummary
		if err := json.Unmarshal([]byte(cached), &s); err == nil {
			c.monitor.TrackSummary("hit", time.Since(start))
			return s, nil
		}
		log.FromContext(ctx).WithField("key", key).Warn("Dropping undecodable cached summary")
	case !errors.Is(err, redis.Nil):
		log.FromContext(ctx).WithError(err).Warn("Summary cache unavailable")
	}

	s, err := c.engine.Summarize(ctx, campaignID, bookings, w)
	if err != nil {
		return entity.FinancialSummary{}, err
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return entity.FinancialSummary{}, fmt.Errorf("marshalling summary: %w", err)
	}
	if err := c.redis.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		log.FromContext(ctx).WithError(err).Warn("Could not cache summary")
	}

	c.monitor.TrackSummary("miss", time.Since(start))
	return s, nil
}

func (c *CachedEngine) SummarizeByCampaign(ctx context.Context, bookings []entity.Booking, w entity.Window) (entity.PlatformSummary, error) {
	start := time.Now()
	defer func() { c.monitor.TrackSummary("bypass", time.Since(start)) }()

	return c.engine.SummarizeByCampaign(ctx, bookings, w)
}

// SummaryKey fingerprints a snapshot. Booking order does not matter.
func SummaryKey(campaignID, feeRate string, bookings []entity.Booking, w entity.Window) string {
	versions := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if b.CampaignID != campaignID {
			continue
		}
		versions = append(versions, b.BookingID+"@"+strconv.FormatInt(b.Version, 10))
	}
	slices.Sort(versions)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", feeRate, campaignID, w.From.UTC().Format(time.RFC3339Nano), w.To.UTC().Format(time.RFC3339Nano))
	for _, v := range versions {
		h.Write([]byte{'|'})
		h.Write([]byte(v))
	}
	return "summary:" + campaignID + ":" + hex.EncodeToString(h.Sum(nil))
}
