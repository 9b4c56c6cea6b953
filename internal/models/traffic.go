package models

// TrafficStat holds the accumulated byte counters reported for one alias
type TrafficStat struct {
	Up   int64
	Down int64
}

// ClientTraffic couples a client record with its traffic counters
type ClientTraffic struct {
	Client
	Up    int64
	Down  int64
	Total int64
}
