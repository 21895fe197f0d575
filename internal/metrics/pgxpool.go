package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the part of *pgxpool.Pool the gauges read.
type PoolStats interface {
	Stat() *pgxpool.Stat
}

// RegisterPool exposes connection pool statistics on reg.
func RegisterPool(reg prometheus.Registerer, pool PoolStats) {
	gauge := func(name, help string, value func(s *pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "netedge_db_pool_" + name,
			Help: help,
		}, func() float64 {
			return value(pool.Stat())
		})
	}

	reg.MustRegister(
		gauge("acquired_conns", "Number of currently acquired connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("max_conns", "Maximum number of connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
		gauge("total_conns", "Total number of connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("idle_conns", "Number of idle connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
	)
}
