package docker

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/patrickmn/go-cache"

	"xrayctl/internal/constants"
	"xrayctl/internal/models"
)

const statsCacheKey = "traffic"

// statsQueryResponse is the structured shape of `xray api statsquery`
type statsQueryResponse struct {
	Stat []statEntry `json:"stat"`
}

// statEntry carries one counter. Value is untyped because the API emits
// either a number or a string depending on the core version.
type statEntry struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// TrafficStats queries per-alias traffic counters from the running core.
// Results are cached briefly so polling dashboards do not hammer the
// container with exec calls.
func (c *Controller) TrafficStats(ctx context.Context) (map[string]models.TrafficStat, error) {
	if cached, found := c.statsCache.Get(statsCacheKey); found {
		return cached.(map[string]models.TrafficStat), nil
	}

	out, err := c.docker(ctx, "exec", c.containerName,
		"xray", "api", "statsquery", "--server="+constants.StatsAPIServer)
	if err != nil {
		return nil, err
	}

	stats := ParseTrafficStats(out)
	c.statsCache.Set(statsCacheKey, stats, cache.DefaultExpiration)
	return stats, nil
}

// ParseTrafficStats turns a raw statsquery dump into per-alias counters.
// Two output shapes are understood: the JSON list of {name, value} entries
// and the older flat text with ">>>"-delimited counter names. Counter names
// follow the core's convention:
//
//	user>>>{alias}>>>traffic>>>{uplink|downlink}
//
// Malformed lines are skipped; a non-integer value reads as zero rather
// than discarding the rest of the dump.
func ParseTrafficStats(out string) map[string]models.TrafficStat {
	stats := make(map[string]models.TrafficStat)

	trimmed := strings.TrimSpace(out)
	if strings.HasPrefix(trimmed, "{") {
		var resp statsQueryResponse
		if err := json.Unmarshal([]byte(trimmed), &resp); err == nil {
			for _, entry := range resp.Stat {
				record(stats, entry.Name, coerceValue(entry.Value))
			}
			return stats
		}
	}

	for _, line := range strings.Split(trimmed, "\n") {
		name, value, ok := parseFlatLine(line)
		if !ok {
			continue
		}
		record(stats, name, value)
	}

	return stats
}

// parseFlatLine picks the counter name and its value out of one line of the
// flat format, e.g. `user>>>alice>>>traffic>>>uplink = 100`
func parseFlatLine(line string) (string, int64, bool) {
	if !strings.Contains(line, ">>>traffic>>>") {
		return "", 0, false
	}

	fields := strings.FieldsFunc(line, func(r rune) bool {
		switch r {
		case ' ', '\t', ':', '=', '"', ',':
			return true
		}
		return false
	})

	var name string
	var value int64
	for _, field := range fields {
		if strings.Contains(field, ">>>traffic>>>") {
			name = field
			continue
		}
		if name != "" {
			// First token after the name is the counter; bad ints stay 0.
			value, _ = strconv.ParseInt(field, 10, 64)
			break
		}
	}

	if name == "" {
		return "", 0, false
	}
	return name, value, true
}

// record folds one counter into the per-alias map, ignoring counters that
// do not belong to a user (inbound/outbound totals)
func record(stats map[string]models.TrafficStat, name string, value int64) {
	parts := strings.Split(name, ">>>")
	if len(parts) != 4 || parts[0] != "user" || parts[2] != "traffic" {
		return
	}

	entry := stats[parts[1]]
	switch parts[3] {
	case "uplink":
		entry.Up = value
	case "downlink":
		entry.Down = value
	default:
		return
	}
	stats[parts[1]] = entry
}

func coerceValue(v interface{}) int64 {
	switch value := v.(type) {
	case float64:
		return int64(value)
	case string:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	}
	return 0
}
