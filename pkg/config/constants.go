package config

// EnvPrefix is applied to every envconfig lookup.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "EPHARM_DB_DSN"
	EnvDBHost = "EPHARM_DB_HOST"
	EnvDBUser = "EPHARM_DB_USER"
	EnvDBName = "EPHARM_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
