package datagen

import (
	"fmt"
	"math/rand"
	"time"
)

// SecurityLog is one synthetic security event, matching the security_logs
// table the benchmark queries run against.
type SecurityLog struct {
	Timestamp time.Time
	EventType string
	Status    string
	UserID    string
	SourceIP  string
	DestIP    string
	Host      string
	BytesIn   int64
	BytesOut  int64
}

// NetworkLog is one synthetic network flow event for the network_logs table.
type NetworkLog struct {
	Timestamp  time.Time
	SrcIP      string
	DestIP     string
	Protocol   string
	Direction  string
	BytesTotal int64
	DurationMS int64
}

var (
	eventTypes = []string{"ssh_login", "web_request", "file_access", "api_call", "database_query"}
	statuses   = []string{"success", "failed", "blocked", "timeout"}
	protocols  = []string{"tcp", "udp", "icmp"}
	directions = []string{"inbound", "outbound"}
)

// Generator produces deterministic synthetic events for a given seed, so
// two runs against freshly loaded databases see the same data distribution.
type Generator struct {
	rng   *rand.Rand
	users []string
	hosts []string
}

func NewGenerator(seed int64) *Generator {
	users := make([]string, 500)
	for i := range users {
		users[i] = fmt.Sprintf("user_%05d", i+1)
	}
	hosts := make([]string, 100)
	for i := range hosts {
		hosts[i] = fmt.Sprintf("host-%03d.internal", i+1)
	}
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		users: users,
		hosts: hosts,
	}
}

// SecurityLogs generates n events spread over the last 90 days.
func (g *Generator) SecurityLogs(n int) []SecurityLog {
	now := time.Now()
	logs := make([]SecurityLog, n)
	for i := range logs {
		logs[i] = SecurityLog{
			Timestamp: now.Add(-g.randomAge(90)),
			EventType: eventTypes[g.rng.Intn(len(eventTypes))],
			Status:    statuses[g.rng.Intn(len(statuses))],
			UserID:    g.users[g.rng.Intn(len(g.users))],
			SourceIP:  g.randomIP(),
			DestIP:    g.randomIP(),
			Host:      g.hosts[g.rng.Intn(len(g.hosts))],
			BytesIn:   int64(g.rng.Intn(49900) + 100),
			BytesOut:  int64(g.rng.Intn(49900) + 100),
		}
	}
	return logs
}

// NetworkLogs generates n flow events spread over the last 90 days.
func (g *Generator) NetworkLogs(n int) []NetworkLog {
	now := time.Now()
	logs := make([]NetworkLog, n)
	for i := range logs {
		logs[i] = NetworkLog{
			Timestamp:  now.Add(-g.randomAge(90)),
			SrcIP:      g.randomIP(),
			DestIP:     g.randomIP(),
			Protocol:   protocols[g.rng.Intn(len(protocols))],
			Direction:  directions[g.rng.Intn(len(directions))],
			BytesTotal: int64(g.rng.Intn(999000) + 1000),
			DurationMS: int64(g.rng.Intn(60000)),
		}
	}
	return logs
}

func (g *Generator) randomAge(maxDays int) time.Duration {
	return time.Duration(g.rng.Int63n(int64(maxDays) * int64(24*time.Hour)))
}

func (g *Generator) randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		g.rng.Intn(183)+10, g.rng.Intn(256), g.rng.Intn(256), g.rng.Intn(254)+1)
}
