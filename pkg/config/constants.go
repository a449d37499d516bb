package config

const (
	EnvPrefix = "SOKOFRESH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SOKOFRESH_DB_DSN"
	EnvDBHost = "SOKOFRESH_DB_HOST"
	EnvDBUser = "SOKOFRESH_DB_USER"
	EnvDBName = "SOKOFRESH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
