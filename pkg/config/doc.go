// Package config loads the identity service configuration.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources winning:
//
//   - Built-in defaults
//   - The YAML file $CAYOPAY_CONFIG_PATH/cayopay.yml (default /etc/cayopay)
//   - Environment variables prefixed with CAYOPAY_
//
// DATABASE_URL, AUDIT_DATABASE_URL, PORT and BIND_ADDRESS are also honoured
// without the prefix when the prefixed variable is unset. Every attribute
// records which source supplied it.
//
// # Key Configuration Options
//
//   - CAYOPAY_DATABASE_URL: Database connection
//   - CAYOPAY_LOG_LEVEL: Logging verbosity (reloaded while serving)
//   - CAYOPAY_SESSION_TTL: Lifetime of a login session
//   - CAYOPAY_INVITATIONS_TTL: Lifetime of an invitation
//   - CAYOPAY_NOTIFY_DRIVER: smtp, webhook or stdout
package config
