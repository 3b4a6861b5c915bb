package config

// Environment names
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsProductionLike reports whether the environment enforces production
// configuration requirements.
func IsProductionLike(environment string) bool {
	return environment == EnvProduction || environment == EnvStaging
}
