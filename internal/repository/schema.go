package repository

// Schema is applied at startup. Amounts and balances are NUMERIC so the
// database never introduces float drift; entries are append-only and the
// sole in-place update is the Posted -> Reversed status flip.
const Schema = `
CREATE TABLE IF NOT EXISTS chart_of_accounts (
    number     VARCHAR(20) PRIMARY KEY,
    name       TEXT NOT NULL,
    class      VARCHAR(12) NOT NULL,
    deleted    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS accounting_rules (
    id         VARCHAR(36) PRIMARY KEY,
    event_code TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    deleted    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_event_code
    ON accounting_rules (event_code) WHERE NOT deleted;

CREATE TABLE IF NOT EXISTS accounting_rule_entries (
    id        VARCHAR(36) PRIMARY KEY,
    rule_id   VARCHAR(36) NOT NULL REFERENCES accounting_rules(id),
    role      VARCHAR(12) NOT NULL,
    attribute TEXT NOT NULL,
    number    VARCHAR(20) NOT NULL REFERENCES chart_of_accounts(number),
    position  INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_rule_entries_rule ON accounting_rule_entries (rule_id);

CREATE TABLE IF NOT EXISTS accounts (
    id                VARCHAR(36) PRIMARY KEY,
    bank_id           VARCHAR(36) NOT NULL,
    branch_id         VARCHAR(36) NOT NULL DEFAULT '',
    product_id        VARCHAR(36) NOT NULL DEFAULT '',
    number            VARCHAR(20) NOT NULL REFERENCES chart_of_accounts(number),
    name              TEXT NOT NULL,
    class             VARCHAR(12) NOT NULL,
    balance           NUMERIC(19, 4) NOT NULL DEFAULT 0,
    default_direction VARCHAR(6) NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (bank_id, branch_id, product_id, number)
);
CREATE INDEX IF NOT EXISTS idx_accounts_scope ON accounts (bank_id, branch_id);

CREATE TABLE IF NOT EXISTS accounting_entries (
    id              VARCHAR(36) PRIMARY KEY,
    account_id      VARCHAR(36) NOT NULL REFERENCES accounts(id),
    number          VARCHAR(20) NOT NULL,
    class           VARCHAR(12) NOT NULL,
    bank_id         VARCHAR(36) NOT NULL,
    branch_id       VARCHAR(36) NOT NULL DEFAULT '',
    product_id      VARCHAR(36) NOT NULL DEFAULT '',
    amount          NUMERIC(19, 4) NOT NULL,
    direction       VARCHAR(6) NOT NULL,
    reference       TEXT NOT NULL,
    reversal_of     TEXT NOT NULL DEFAULT '',
    event_code      TEXT NOT NULL,
    attribute       TEXT NOT NULL,
    upstream_ref    TEXT NOT NULL DEFAULT '',
    value_date      TIMESTAMPTZ NOT NULL,
    accounting_date TIMESTAMPTZ NOT NULL,
    status          VARCHAR(10) NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_entries_reference ON accounting_entries (reference);
CREATE INDEX IF NOT EXISTS idx_entries_account ON accounting_entries (account_id, accounting_date);
CREATE INDEX IF NOT EXISTS idx_entries_period ON accounting_entries (bank_id, branch_id, accounting_date);
`
