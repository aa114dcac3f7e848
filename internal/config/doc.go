// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation, which is how the bearer token is usually supplied:
//
//	api:
//	  base_url: https://radio.example.com
//	auth:
//	  token: ${RADIOLINK_TOKEN}
package config
