package engines

import (
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/types"
)

type DepthCachePayloadMessage struct {
	Market string      `json:"market"`
	Depth  types.Depth `json:"depth"`
}

// DepthCacheWorker mirrors book depth snapshots into Redis so outer
// surfaces can serve depth without touching the engine.
type DepthCacheWorker struct {
	Sequences map[string]uint64
}

func NewDepthCacheWorker() *DepthCacheWorker {
	return &DepthCacheWorker{
		Sequences: make(map[string]uint64),
	}
}

func (w *DepthCacheWorker) Process(payload []byte) error {
	var message DepthCachePayloadMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return err
	}

	w.Sequences[message.Market]++

	prefix := "zentex:" + message.Market + ":depth"

	if err := config.Redis.SetKey(prefix+":asks", message.Depth.Asks, redis.KeepTTL); err != nil {
		return err
	}
	if err := config.Redis.SetKey(prefix+":bids", message.Depth.Bids, redis.KeepTTL); err != nil {
		return err
	}

	return config.Redis.SetKey(prefix+":sequence", w.Sequences[message.Market], redis.KeepTTL)
}
