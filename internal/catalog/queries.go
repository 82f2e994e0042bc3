package catalog

// Builtin returns the default cybersecurity query set. The queries run
// against the security_logs and network_logs tables loaded by the generate
// subcommand. PostgreSQL text doubles as the default dialect since StarRocks,
// Trino and the Splunk DB Connect passthrough all accept ANSI-flavored SQL
// for most of these; ClickHouse needs its own variants for date functions.
func Builtin() *Catalog {
	c, err := New(builtinQueries())
	if err != nil {
		// The builtin set is validated by tests; a failure here is a bug.
		panic(err)
	}
	return c
}

func builtinQueries() []QueryDefinition {
	return []QueryDefinition{
		{
			Name:        "count_all",
			Description: "Count all security log records",
			DefaultSQL:  `SELECT COUNT(*) AS count FROM security_logs`,
		},
		{
			Name:        "aggregation_by_event_type",
			Description: "Aggregate security logs by event type",
			DefaultSQL: `SELECT event_type, COUNT(*) AS count,
       SUM(bytes_in) AS total_bytes_in,
       AVG(bytes_out) AS avg_bytes_out
FROM security_logs
GROUP BY event_type
ORDER BY count DESC
LIMIT 10`,
		},
		{
			Name:        "filter_failed_logins",
			Description: "Users with more than 3 failed SSH logins",
			DefaultSQL: `SELECT user_id, COUNT(*) AS failed_attempts
FROM security_logs
WHERE event_type = 'ssh_login' AND status = 'failed'
GROUP BY user_id
HAVING COUNT(*) > 3
ORDER BY failed_attempts DESC`,
		},
		{
			Name:        "time_range_aggregation",
			Description: "Daily event and unique-user counts over the last 7 days",
			SQL: map[Dialect]string{
				DialectPostgreSQL: `SELECT DATE(timestamp) AS day,
       COUNT(*) AS events,
       COUNT(DISTINCT user_id) AS unique_users
FROM security_logs
WHERE timestamp >= NOW() - INTERVAL '7 days'
GROUP BY DATE(timestamp)
ORDER BY day DESC`,
				DialectClickHouse: `SELECT toDate(timestamp) AS day,
       COUNT(*) AS events,
       uniqExact(user_id) AS unique_users
FROM security_logs
WHERE timestamp >= now() - INTERVAL 7 DAY
GROUP BY toDate(timestamp)
ORDER BY day DESC`,
				DialectStarRocks: `SELECT DATE(timestamp) AS day,
       COUNT(*) AS events,
       COUNT(DISTINCT user_id) AS unique_users
FROM security_logs
WHERE timestamp >= NOW() - INTERVAL 7 DAY
GROUP BY DATE(timestamp)
ORDER BY day DESC`,
				DialectTrino: `SELECT DATE(timestamp) AS day,
       COUNT(*) AS events,
       COUNT(DISTINCT user_id) AS unique_users
FROM security_logs
WHERE timestamp >= NOW() - INTERVAL '7' DAY
GROUP BY DATE(timestamp)
ORDER BY day DESC`,
			},
		},
		{
			Name:        "top_data_transfer",
			Description: "Top 100 events by total transferred bytes",
			DefaultSQL: `SELECT user_id, event_type, source_ip, dest_ip,
       (bytes_in + bytes_out) AS total_bytes
FROM security_logs
WHERE bytes_in IS NOT NULL AND bytes_out IS NOT NULL
ORDER BY total_bytes DESC
LIMIT 100`,
		},
		{
			Name:        "network_traffic_by_protocol",
			Description: "Network traffic summary by protocol and direction",
			DefaultSQL: `SELECT protocol, direction,
       COUNT(*) AS connection_count,
       SUM(bytes_total) AS total_bytes,
       AVG(duration_ms) AS avg_duration_ms
FROM network_logs
GROUP BY protocol, direction
ORDER BY total_bytes DESC`,
		},
		{
			Name:        "top_talkers",
			Description: "Top 20 source IPs by traffic volume",
			DefaultSQL: `SELECT src_ip,
       COUNT(*) AS connections,
       SUM(bytes_total) AS total_bytes
FROM network_logs
GROUP BY src_ip
ORDER BY total_bytes DESC
LIMIT 20`,
		},
		{
			Name:        "security_timeline",
			Description: "Hourly security event timeline over the last 7 days",
			SQL: map[Dialect]string{
				DialectPostgreSQL: `SELECT DATE_TRUNC('hour', timestamp) AS hour,
       event_type,
       COUNT(*) AS event_count
FROM security_logs
WHERE timestamp > NOW() - INTERVAL '7 days'
GROUP BY hour, event_type
ORDER BY hour DESC, event_count DESC
LIMIT 100`,
				DialectClickHouse: `SELECT toStartOfHour(timestamp) AS hour,
       event_type,
       COUNT(*) AS event_count
FROM security_logs
WHERE timestamp > now() - INTERVAL 7 DAY
GROUP BY hour, event_type
ORDER BY hour DESC, event_count DESC
LIMIT 100`,
				DialectStarRocks: `SELECT DATE_TRUNC('hour', timestamp) AS hour,
       event_type,
       COUNT(*) AS event_count
FROM security_logs
WHERE timestamp > NOW() - INTERVAL 7 DAY
GROUP BY hour, event_type
ORDER BY hour DESC, event_count DESC
LIMIT 100`,
				DialectTrino: `SELECT DATE_TRUNC('hour', timestamp) AS hour,
       event_type,
       COUNT(*) AS event_count
FROM security_logs
WHERE timestamp > NOW() - INTERVAL '7' DAY
GROUP BY 1, event_type
ORDER BY hour DESC, event_count DESC
LIMIT 100`,
			},
		},
	}
}
