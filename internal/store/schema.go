package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS intakes (
    id                   TEXT PRIMARY KEY,
    day                  TEXT NOT NULL,
    at                   TEXT NOT NULL,
    amount_ml            REAL NOT NULL,
    kind                 TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS day_totals (
    date                 TEXT PRIMARY KEY,
    total_ml             REAL NOT NULL,
    goal_ml              REAL NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_intakes_day ON intakes(day);
`
