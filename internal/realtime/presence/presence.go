package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

const groupsKey = "presence:groups"

// Tracker records which users hold a live socket in a group. Each member's
// score is its expiry; heartbeats push the expiry forward and the sweeper
// drops members whose process died without leaving.
type Tracker struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

func NewTracker(log *logger.Logger, rdb goredis.UniversalClient, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Tracker{
		log: log.With("component", "PresenceTracker"),
		rdb: rdb,
		ttl: ttl,
		now: time.Now,
	}
}

func key(group string) string { return "presence:" + group }

func member(userID uuid.UUID, clientID uuid.UUID) string {
	return userID.String() + "|" + clientID.String()
}

func (t *Tracker) Touch(ctx context.Context, group string, userID, clientID uuid.UUID) error {
	if t == nil || t.rdb == nil {
		return nil
	}
	exp := t.now().Add(t.ttl).Unix()
	pipe := t.rdb.TxPipeline()
	pipe.ZAdd(ctx, key(group), goredis.Z{Score: float64(exp), Member: member(userID, clientID)})
	pipe.SAdd(ctx, groupsKey, group)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *Tracker) Remove(ctx context.Context, group string, userID, clientID uuid.UUID) error {
	if t == nil || t.rdb == nil {
		return nil
	}
	return t.rdb.ZRem(ctx, key(group), member(userID, clientID)).Err()
}

// Members returns the distinct users with an unexpired entry in group.
func (t *Tracker) Members(ctx context.Context, group string) ([]uuid.UUID, error) {
	if t == nil || t.rdb == nil {
		return nil, fmt.Errorf("presence tracker not initialized")
	}
	min := strconv.FormatInt(t.now().Unix(), 10)
	raw, err := t.rdb.ZRangeByScore(ctx, key(group), &goredis.ZRangeBy{Min: min, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool, len(raw))
	out := make([]uuid.UUID, 0, len(raw))
	for _, m := range raw {
		uid, ok := parseMember(m)
		if !ok || seen[uid] {
			continue
		}
		seen[uid] = true
		out = append(out, uid)
	}
	return out, nil
}

// Sweep removes expired members from every known group and forgets groups
// that end up empty. Returns the number of members removed.
func (t *Tracker) Sweep(ctx context.Context) (int64, error) {
	if t == nil || t.rdb == nil {
		return 0, nil
	}
	groups, err := t.rdb.SMembers(ctx, groupsKey).Result()
	if err != nil {
		return 0, err
	}
	max := "(" + strconv.FormatInt(t.now().Unix(), 10)
	var removed int64
	for _, g := range groups {
		n, err := t.rdb.ZRemRangeByScore(ctx, key(g), "-inf", max).Result()
		if err != nil {
			return removed, err
		}
		removed += n
		left, err := t.rdb.ZCard(ctx, key(g)).Result()
		if err != nil {
			return removed, err
		}
		if left == 0 {
			t.rdb.SRem(ctx, groupsKey, g)
		}
	}
	if removed > 0 {
		t.log.Debug("presence sweep", "removed", removed, "groups", len(groups))
	}
	return removed, nil
}

func parseMember(m string) (uuid.UUID, bool) {
	for i := 0; i < len(m); i++ {
		if m[i] == '|' {
			uid, err := uuid.Parse(m[:i])
			return uid, err == nil
		}
	}
	return uuid.Nil, false
}
