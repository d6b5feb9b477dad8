// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

// schemaDDL creates every table on open. Each service family owns its
// tables; multi-provider families carry a provider column. Opaque JSON
// (attribute definitions, key schemas, patterns, policies, tags) lives in
// plain TEXT columns and is never normalized.
const schemaDDL = `
-- Object storage: buckets
CREATE TABLE IF NOT EXISTS buckets (
    provider TEXT NOT NULL,
    name TEXT NOT NULL,
    region TEXT NOT NULL DEFAULT 'us-east-1',
    created_at TEXT NOT NULL,
    owner_id TEXT NOT NULL DEFAULT '000000000000',

    -- Versioning: Disabled, Enabled, Suspended
    versioning TEXT DEFAULT 'Disabled',

    -- Opaque JSON fields
    acl TEXT,
    policy TEXT,
    lifecycle_rules TEXT,
    cors_rules TEXT,
    notification_config TEXT,
    public_access_block TEXT,
    tags TEXT,

    object_lock_enabled INTEGER DEFAULT 0,

    PRIMARY KEY (provider, name)
);

-- Object storage: objects
CREATE TABLE IF NOT EXISTS objects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider TEXT NOT NULL,
    bucket TEXT NOT NULL,
    key TEXT NOT NULL,

    version_id TEXT,
    is_latest INTEGER DEFAULT 1,
    is_delete_marker INTEGER DEFAULT 0,

    content_hash TEXT NOT NULL,
    content_length INTEGER NOT NULL,
    content_type TEXT DEFAULT 'application/octet-stream',
    content_encoding TEXT,
    cache_control TEXT,
    content_disposition TEXT,

    etag TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    metadata TEXT,
    storage_class TEXT DEFAULT 'STANDARD',

    FOREIGN KEY (provider, bucket) REFERENCES buckets(provider, name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_objects_bucket_key ON objects(provider, bucket, key);
CREATE INDEX IF NOT EXISTS idx_objects_bucket_latest ON objects(provider, bucket, is_latest);
CREATE UNIQUE INDEX IF NOT EXISTS idx_objects_unique_version ON objects(provider, bucket, key, version_id);

-- Object storage: multipart uploads
CREATE TABLE IF NOT EXISTS multipart_uploads (
    upload_id TEXT PRIMARY KEY,
    provider TEXT NOT NULL,
    bucket TEXT NOT NULL,
    key TEXT NOT NULL,
    initiated TEXT NOT NULL,
    metadata TEXT,

    FOREIGN KEY (provider, bucket) REFERENCES buckets(provider, name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS multipart_parts (
    upload_id TEXT NOT NULL,
    part_number INTEGER NOT NULL,
    content_hash TEXT NOT NULL,
    size INTEGER NOT NULL,
    etag TEXT NOT NULL,
    last_modified TEXT NOT NULL,

    PRIMARY KEY (upload_id, part_number),
    FOREIGN KEY (upload_id) REFERENCES multipart_uploads(upload_id) ON DELETE CASCADE
);

-- Request audit log
CREATE TABLE IF NOT EXISTS request_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    provider TEXT NOT NULL,
    service TEXT NOT NULL,
    operation TEXT NOT NULL,
    bucket TEXT,
    key TEXT,
    status_code INTEGER,
    error_code TEXT,
    request_id TEXT NOT NULL,
    user_agent TEXT,
    source_ip TEXT
);

CREATE INDEX IF NOT EXISTS idx_request_log_timestamp ON request_log(timestamp);

-- Secrets
CREATE TABLE IF NOT EXISTS secrets (
    arn TEXT PRIMARY KEY,
    provider TEXT NOT NULL DEFAULT 'aws',
    name TEXT NOT NULL,
    description TEXT,
    kms_key_id TEXT,
    created_at TEXT NOT NULL,
    last_changed_date TEXT,
    last_accessed_date TEXT,
    tags TEXT,
    deleted_date TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_secrets_name ON secrets(provider, name);

CREATE TABLE IF NOT EXISTS secret_versions (
    secret_arn TEXT NOT NULL,
    version_id TEXT NOT NULL,
    version_stages TEXT,
    secret_string TEXT,
    secret_binary BLOB,
    created_date TEXT NOT NULL,

    PRIMARY KEY (secret_arn, version_id),
    FOREIGN KEY (secret_arn) REFERENCES secrets(arn) ON DELETE CASCADE
);

-- KMS keys
CREATE TABLE IF NOT EXISTS kms_keys (
    id TEXT PRIMARY KEY,
    provider TEXT NOT NULL DEFAULT 'aws',
    arn TEXT NOT NULL,
    description TEXT,
    key_usage TEXT DEFAULT 'ENCRYPT_DECRYPT',
    key_spec TEXT DEFAULT 'SYMMETRIC_DEFAULT',
    key_state TEXT DEFAULT 'Enabled',
    material BLOB,
    created_at TEXT NOT NULL,
    deletion_date TEXT,
    tags TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_kms_keys_arn ON kms_keys(arn);

-- Event buses, rules, targets, history
CREATE TABLE IF NOT EXISTS event_buses (
    provider TEXT NOT NULL DEFAULT 'aws',
    name TEXT NOT NULL,
    arn TEXT NOT NULL,
    policy TEXT,

    PRIMARY KEY (provider, name)
);

CREATE TABLE IF NOT EXISTS event_rules (
    provider TEXT NOT NULL DEFAULT 'aws',
    event_bus_name TEXT NOT NULL,
    name TEXT NOT NULL,
    arn TEXT NOT NULL,
    event_pattern TEXT,
    state TEXT DEFAULT 'ENABLED',
    description TEXT,
    schedule_expression TEXT,
    created_at TEXT NOT NULL,

    PRIMARY KEY (provider, event_bus_name, name),
    FOREIGN KEY (provider, event_bus_name) REFERENCES event_buses(provider, name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS event_targets (
    provider TEXT NOT NULL DEFAULT 'aws',
    event_bus_name TEXT NOT NULL,
    rule_name TEXT NOT NULL,
    id TEXT NOT NULL,
    arn TEXT NOT NULL,
    input TEXT,
    input_path TEXT,

    PRIMARY KEY (provider, event_bus_name, rule_name, id),
    FOREIGN KEY (provider, event_bus_name, rule_name)
        REFERENCES event_rules(provider, event_bus_name, name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS event_history (
    id TEXT PRIMARY KEY,
    provider TEXT NOT NULL DEFAULT 'aws',
    event_bus_name TEXT NOT NULL,
    source TEXT,
    detail_type TEXT,
    detail TEXT,
    time TEXT,
    resources TEXT,
    matched_rules TEXT
);

-- KV tables and items (DynamoDB, Cosmos, Firestore)
CREATE TABLE IF NOT EXISTS kv_tables (
    provider TEXT NOT NULL,
    name TEXT NOT NULL,
    arn TEXT NOT NULL,
    status TEXT DEFAULT 'ACTIVE',
    attribute_definitions TEXT,
    key_schema TEXT,
    created_at TEXT NOT NULL,

    PRIMARY KEY (provider, name)
);

CREATE TABLE IF NOT EXISTS kv_items (
    provider TEXT NOT NULL,
    table_name TEXT NOT NULL,
    pk TEXT NOT NULL,
    sk TEXT NOT NULL DEFAULT '',
    item TEXT NOT NULL,

    PRIMARY KEY (provider, table_name, pk, sk),
    FOREIGN KEY (provider, table_name) REFERENCES kv_tables(provider, name) ON DELETE CASCADE
);

-- Queues and messages (SQS, Service Bus, Pub/Sub backing)
CREATE TABLE IF NOT EXISTS queues (
    provider TEXT NOT NULL,
    name TEXT NOT NULL,
    url TEXT NOT NULL,
    arn TEXT NOT NULL,
    visibility_timeout INTEGER DEFAULT 30,
    retention_seconds INTEGER DEFAULT 345600,
    delay_seconds INTEGER DEFAULT 0,
    receive_wait_seconds INTEGER DEFAULT 0,
    created_at TEXT NOT NULL,

    PRIMARY KEY (provider, name)
);

CREATE TABLE IF NOT EXISTS queue_messages (
    id TEXT PRIMARY KEY,
    provider TEXT NOT NULL,
    queue_name TEXT NOT NULL,
    body TEXT NOT NULL,
    body_md5 TEXT NOT NULL,
    sent_at TEXT NOT NULL,
    visible_at INTEGER NOT NULL,
    receipt_handle TEXT,
    receive_count INTEGER DEFAULT 0,

    FOREIGN KEY (provider, queue_name) REFERENCES queues(provider, name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_visible ON queue_messages(provider, queue_name, visible_at);

-- Topics and subscriptions (SNS, Pub/Sub, Event Grid)
CREATE TABLE IF NOT EXISTS topics (
    provider TEXT NOT NULL,
    name TEXT NOT NULL,
    arn TEXT NOT NULL,

    PRIMARY KEY (provider, name)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_topics_arn ON topics(arn);

CREATE TABLE IF NOT EXISTS subscriptions (
    arn TEXT PRIMARY KEY,
    provider TEXT NOT NULL,
    topic_arn TEXT NOT NULL,
    protocol TEXT NOT NULL,
    endpoint TEXT NOT NULL,

    FOREIGN KEY (topic_arn) REFERENCES topics(arn) ON DELETE CASCADE
);

-- Fan-out audit for non-queue protocols
CREATE TABLE IF NOT EXISTS sns_deliveries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id TEXT NOT NULL,
    topic_arn TEXT NOT NULL,
    protocol TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    delivered_at TEXT NOT NULL,
    status TEXT NOT NULL
);

-- Identity (Cognito-like)
CREATE TABLE IF NOT EXISTS user_pools (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    arn TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    pool_id TEXT NOT NULL,
    username TEXT NOT NULL,
    email TEXT,
    status TEXT DEFAULT 'UNCONFIRMED',
    enabled INTEGER DEFAULT 1,
    password_hash TEXT,
    created_at TEXT NOT NULL,

    PRIMARY KEY (pool_id, username),
    FOREIGN KEY (pool_id) REFERENCES user_pools(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS user_attributes (
    pool_id TEXT NOT NULL,
    username TEXT NOT NULL,
    name TEXT NOT NULL,
    value TEXT,

    PRIMARY KEY (pool_id, username, name),
    FOREIGN KEY (pool_id, username) REFERENCES users(pool_id, username) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS user_groups (
    pool_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    precedence INTEGER,

    PRIMARY KEY (pool_id, name),
    FOREIGN KEY (pool_id) REFERENCES user_pools(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_members (
    pool_id TEXT NOT NULL,
    group_name TEXT NOT NULL,
    username TEXT NOT NULL,

    PRIMARY KEY (pool_id, group_name, username),
    FOREIGN KEY (pool_id, group_name) REFERENCES user_groups(pool_id, name) ON DELETE CASCADE
);

-- Monitoring (CloudWatch-like)
CREATE TABLE IF NOT EXISTS metric_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    namespace TEXT NOT NULL,
    metric_name TEXT NOT NULL,
    dimensions TEXT,
    value REAL NOT NULL,
    unit TEXT,
    timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metric_data_name ON metric_data(namespace, metric_name);

CREATE TABLE IF NOT EXISTS log_groups (
    name TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS log_streams (
    group_name TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,

    PRIMARY KEY (group_name, name),
    FOREIGN KEY (group_name) REFERENCES log_groups(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS log_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    group_name TEXT NOT NULL,
    stream_name TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    message TEXT NOT NULL,

    FOREIGN KEY (group_name, stream_name) REFERENCES log_streams(group_name, name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_log_events_stream ON log_events(group_name, stream_name, timestamp);

-- Workflows (Step Functions-like)
CREATE TABLE IF NOT EXISTS sf_state_machines (
    arn TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    definition TEXT NOT NULL,
    role_arn TEXT NOT NULL,
    type TEXT DEFAULT 'STANDARD',
    created_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sf_name ON sf_state_machines(name);

CREATE TABLE IF NOT EXISTS sf_executions (
    arn TEXT PRIMARY KEY,
    state_machine_arn TEXT NOT NULL,
    name TEXT NOT NULL,
    status TEXT DEFAULT 'RUNNING',
    input TEXT,
    output TEXT,
    start_date TEXT NOT NULL,
    stop_date TEXT,

    FOREIGN KEY (state_machine_arn) REFERENCES sf_state_machines(arn) ON DELETE CASCADE
);

-- Pricing catalog
CREATE TABLE IF NOT EXISTS pricing_services (
    provider TEXT NOT NULL,
    code TEXT NOT NULL,
    name TEXT NOT NULL,

    PRIMARY KEY (provider, code)
);

CREATE TABLE IF NOT EXISTS pricing_products (
    provider TEXT NOT NULL,
    sku TEXT NOT NULL,
    service_code TEXT NOT NULL,
    attributes TEXT,

    PRIMARY KEY (provider, sku)
);

CREATE TABLE IF NOT EXISTS pricing_terms (
    provider TEXT NOT NULL,
    id TEXT NOT NULL,
    sku TEXT NOT NULL,
    dimensions TEXT,

    PRIMARY KEY (provider, id)
);
`
