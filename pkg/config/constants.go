package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// names so the prefix only matters for vars without an explicit tag.
const EnvPrefix = "backender"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "BACKENDER_APP_ENV"
	EnvClickHouseHost = "BACKENDER_CLICKHOUSE_HOST"

	EnvDBDSN  = "BACKENDER_DB_DSN"
	EnvDBHost = "BACKENDER_DB_HOST"
	EnvDBUser = "BACKENDER_DB_USER"
	EnvDBName = "BACKENDER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
