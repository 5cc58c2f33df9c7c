package repository

import "fmt"

const (
	closesTable   = "daily_closes"
	analysesTable = "pair_analyses"
)

// SchemaStatements returns the idempotent DDL for the tables this package reads and writes.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            symbol LowCardinality(String),
            d Date,
            close Float64
        ) ENGINE = ReplacingMergeTree ORDER BY (symbol, d)`, database, closesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            run_id UUID,
            created_at DateTime64(3, 'UTC'),
            symbol_x LowCardinality(String),
            symbol_y LowCardinality(String),
            regression_lookback String,
            ou_lookback String,
            threshold Float64,
            n_obs UInt32,
            window_start Date,
            window_end Date,
            beta Float64,
            intercept Float64,
            theta Float64,
            mu Float64,
            sigma Float64,
            eq_vol Float64,
            mean_reverting Bool,
            last_signal Float64,
            last_position Float64,
            cagr Float64,
            sharpe Float64,
            max_drawdown Float64
        ) ENGINE = MergeTree ORDER BY (symbol_x, symbol_y, created_at)`, database, analysesTable),
	}
}
