package db

// Dates are stored as YYYY-MM-DD text and times of day as HH:MM text so the
// availability window math behaves the same on every driver.

const schemaMySQL = `
CREATE TABLE IF NOT EXISTS trips (
    id           BIGINT AUTO_INCREMENT PRIMARY KEY,
    label        VARCHAR(120) NOT NULL,
    route_name   VARCHAR(120) NOT NULL DEFAULT '',
    service_date VARCHAR(10) NOT NULL,
    service_time VARCHAR(5) NOT NULL,
    status       VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
    capacity     INT NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL,
    updated_at   DATETIME NOT NULL,
    INDEX idx_trips_date_time (service_date, service_time)
);

CREATE TABLE IF NOT EXISTS vehicles (
    id           BIGINT AUTO_INCREMENT PRIMARY KEY,
    vehicle_code VARCHAR(40) NOT NULL UNIQUE,
    plate_number VARCHAR(40) NOT NULL DEFAULT '',
    capacity     INT NOT NULL DEFAULT 0,
    status       VARCHAR(20) NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS drivers (
    id     BIGINT AUTO_INCREMENT PRIMARY KEY,
    name   VARCHAR(120) NOT NULL,
    phone  VARCHAR(40) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS deployments (
    deployment_id BIGINT AUTO_INCREMENT PRIMARY KEY,
    trip_id       BIGINT NOT NULL UNIQUE,
    vehicle_id    BIGINT NULL,
    driver_id     BIGINT NULL,
    deployed_at   DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL,
    INDEX idx_deployments_vehicle (vehicle_id),
    INDEX idx_deployments_driver (driver_id),
    CONSTRAINT fk_deployments_trip FOREIGN KEY (trip_id) REFERENCES trips(id),
    CONSTRAINT fk_deployments_vehicle FOREIGN KEY (vehicle_id) REFERENCES vehicles(id),
    CONSTRAINT fk_deployments_driver FOREIGN KEY (driver_id) REFERENCES drivers(id)
);

CREATE TABLE IF NOT EXISTS bookings (
    id             BIGINT AUTO_INCREMENT PRIMARY KEY,
    trip_id        BIGINT NOT NULL,
    passenger_name VARCHAR(120) NOT NULL DEFAULT '',
    seats          INT NOT NULL DEFAULT 1,
    status         VARCHAR(20) NOT NULL DEFAULT 'CONFIRMED',
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL,
    INDEX idx_bookings_trip_status (trip_id, status),
    CONSTRAINT fk_bookings_trip FOREIGN KEY (trip_id) REFERENCES trips(id)
);

CREATE TABLE IF NOT EXISTS confirmation_sessions (
    session_id       CHAR(36) PRIMARY KEY,
    user_id          BIGINT NOT NULL,
    pending_action   JSON NOT NULL,
    status           VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL,
    execution_result TEXT NULL,
    INDEX idx_sessions_status_created (status, created_at)
);

CREATE TABLE IF NOT EXISTS audit_logs (
    log_id      BIGINT AUTO_INCREMENT PRIMARY KEY,
    action      VARCHAR(60) NOT NULL,
    user_id     BIGINT NOT NULL,
    entity_type VARCHAR(40) NOT NULL,
    entity_id   BIGINT NOT NULL,
    details     JSON NOT NULL,
    logged_at   DATETIME NOT NULL,
    INDEX idx_audit_entity (entity_type, entity_id)
);

CREATE TABLE IF NOT EXISTS outbox (
    id         BIGINT AUTO_INCREMENT PRIMARY KEY,
    topic      VARCHAR(120) NOT NULL,
    msg_key    VARCHAR(120) NOT NULL DEFAULT '',
    payload    TEXT NOT NULL,
    retries    INT NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    sent_at    DATETIME NULL,
    INDEX idx_outbox_pending (sent_at, id)
)
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS trips (
    id           BIGSERIAL PRIMARY KEY,
    label        TEXT NOT NULL,
    route_name   TEXT NOT NULL DEFAULT '',
    service_date VARCHAR(10) NOT NULL,
    service_time VARCHAR(5) NOT NULL,
    status       VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
    capacity     INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trips_date_time ON trips(service_date, service_time);

CREATE TABLE IF NOT EXISTS vehicles (
    id           BIGSERIAL PRIMARY KEY,
    vehicle_code TEXT NOT NULL UNIQUE,
    plate_number TEXT NOT NULL DEFAULT '',
    capacity     INTEGER NOT NULL DEFAULT 0,
    status       VARCHAR(20) NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS drivers (
    id     BIGSERIAL PRIMARY KEY,
    name   TEXT NOT NULL,
    phone  TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS deployments (
    deployment_id BIGSERIAL PRIMARY KEY,
    trip_id       BIGINT NOT NULL UNIQUE REFERENCES trips(id),
    vehicle_id    BIGINT REFERENCES vehicles(id),
    driver_id     BIGINT REFERENCES drivers(id),
    deployed_at   TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deployments_vehicle ON deployments(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_deployments_driver ON deployments(driver_id);

CREATE TABLE IF NOT EXISTS bookings (
    id             BIGSERIAL PRIMARY KEY,
    trip_id        BIGINT NOT NULL REFERENCES trips(id),
    passenger_name TEXT NOT NULL DEFAULT '',
    seats          INTEGER NOT NULL DEFAULT 1,
    status         VARCHAR(20) NOT NULL DEFAULT 'CONFIRMED',
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bookings_trip_status ON bookings(trip_id, status);

CREATE TABLE IF NOT EXISTS confirmation_sessions (
    session_id       VARCHAR(36) PRIMARY KEY,
    user_id          BIGINT NOT NULL,
    pending_action   JSONB NOT NULL,
    status           VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL,
    execution_result TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON confirmation_sessions(status, created_at);

CREATE TABLE IF NOT EXISTS audit_logs (
    log_id      BIGSERIAL PRIMARY KEY,
    action      VARCHAR(60) NOT NULL,
    user_id     BIGINT NOT NULL,
    entity_type VARCHAR(40) NOT NULL,
    entity_id   BIGINT NOT NULL,
    details     JSONB NOT NULL,
    logged_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_logs(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS outbox (
    id         BIGSERIAL PRIMARY KEY,
    topic      TEXT NOT NULL,
    msg_key    TEXT NOT NULL DEFAULT '',
    payload    TEXT NOT NULL,
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    sent_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at, id)
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS trips (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    label        TEXT NOT NULL,
    route_name   TEXT NOT NULL DEFAULT '',
    service_date TEXT NOT NULL,
    service_time TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'SCHEDULED',
    capacity     INTEGER NOT NULL DEFAULT 0,
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trips_date_time ON trips(service_date, service_time);

CREATE TABLE IF NOT EXISTS vehicles (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    vehicle_code TEXT NOT NULL UNIQUE,
    plate_number TEXT NOT NULL DEFAULT '',
    capacity     INTEGER NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS drivers (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    name   TEXT NOT NULL,
    phone  TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS deployments (
    deployment_id INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id       INTEGER NOT NULL UNIQUE REFERENCES trips(id),
    vehicle_id    INTEGER REFERENCES vehicles(id),
    driver_id     INTEGER REFERENCES drivers(id),
    deployed_at   TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deployments_vehicle ON deployments(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_deployments_driver ON deployments(driver_id);

CREATE TABLE IF NOT EXISTS bookings (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id        INTEGER NOT NULL REFERENCES trips(id),
    passenger_name TEXT NOT NULL DEFAULT '',
    seats          INTEGER NOT NULL DEFAULT 1,
    status         TEXT NOT NULL DEFAULT 'CONFIRMED',
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bookings_trip_status ON bookings(trip_id, status);

CREATE TABLE IF NOT EXISTS confirmation_sessions (
    session_id       TEXT PRIMARY KEY,
    user_id          INTEGER NOT NULL,
    pending_action   TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'PENDING',
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL,
    execution_result TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON confirmation_sessions(status, created_at);

CREATE TABLE IF NOT EXISTS audit_logs (
    log_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    action      TEXT NOT NULL,
    user_id     INTEGER NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL,
    details     TEXT NOT NULL,
    logged_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_logs(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS outbox (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    topic      TEXT NOT NULL,
    msg_key    TEXT NOT NULL DEFAULT '',
    payload    TEXT NOT NULL,
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    sent_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at, id)
`
