package repository

// Schema returns the DDL applied at startup (idempotent).
//
// market_bars is a ReplacingMergeTree keyed on (symbol, ts): re-ingesting a
// bar for an existing hour replaces the previous row at merge time, and
// reads use FINAL so upsert semantics hold before merges run.
//
// forecast_records is append-only; the latest row per horizon is resolved
// with LIMIT 1 BY rather than scanning history in the application.
func Schema() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS coinsight`,
		`CREATE TABLE IF NOT EXISTS coinsight.market_bars (
            symbol      LowCardinality(String),
            ts          DateTime,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Float64,
            market_cap  Float64,
            source      LowCardinality(String),
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at)
        PARTITION BY toYYYYMM(ts)
        ORDER BY (symbol, ts)`,
		`CREATE TABLE IF NOT EXISTS coinsight.forecast_records (
            symbol           LowCardinality(String),
            generated_at     DateTime,
            horizon_hours    UInt32,
            predicted_price  Float64,
            confidence_lower Float64,
            confidence_upper Float64,
            confidence_score Float64,
            probability_up   Float64,
            model_version    LowCardinality(String),
            features         String
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(generated_at)
        ORDER BY (symbol, horizon_hours, generated_at)`,
	}
}
