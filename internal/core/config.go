package core

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of the
// gateway's server components.
type Config struct {
	// Hostname or IP address on which the servers will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// IP broadcast to clients in the world list when a world has no address of its own.
	ExternalIP string `mapstructure:"external_ip"`
	// Maximum number of concurrent connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`
	// Name of the world served by the game server.
	ServerName string `mapstructure:"server_name"`

	Logging struct {
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
	} `mapstructure:"logging"`

	Database struct {
		// Either "sqlite" or "postgres".
		Engine string `mapstructure:"engine"`
		// Database file used by the sqlite engine, relative to the config directory.
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on host on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database in Postgres.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	RSA struct {
		// PEM encoded 1024-bit private key matching the public key compiled into the client.
		PrivateKeyFile string `mapstructure:"private_key_file"`
	} `mapstructure:"rsa"`

	LoginServer struct {
		// Port on which the LOGIN server will listen.
		Port int `mapstructure:"port"`
		// Range of protocol versions accepted by both servers.
		ClientVersionMin int `mapstructure:"client_version_min"`
		ClientVersionMax int `mapstructure:"client_version_max"`
		// Human readable version shown in the "protocol not supported" message.
		ClientVersionStr string `mapstructure:"client_version_str"`
		// Versions at or below this one are rejected before the key exchange.
		LegacyVersion int `mapstructure:"legacy_version"`
		// Length of one authenticator time step.
		TokenPeriodSeconds int `mapstructure:"token_period_seconds"`
		// Grant premium to every account.
		FreePremium bool `mapstructure:"free_premium"`
		// Serve the cast list when the account name is empty.
		EnableLiveCasting bool `mapstructure:"enable_live_casting"`
		// Serve the record list when the password is empty.
		EnableRecord bool `mapstructure:"enable_record"`
		// Message of the day shown after login. Blank disables it.
		Motd string `mapstructure:"motd"`
	} `mapstructure:"login_server"`

	GameServer struct {
		// Port on which the GAME server will listen.
		Port int `mapstructure:"port"`
		// World ID characters must belong to in order to enter this server.
		WorldID int `mapstructure:"world_id"`
		// Dimensions of the walkable ground generated on floor 7.
		MapWidth  int `mapstructure:"map_width"`
		MapHeight int `mapstructure:"map_height"`
		// Client item ID used for generated ground tiles.
		GroundItemID int `mapstructure:"ground_item_id"`
		// Position at which characters without a saved position appear.
		TempleX int `mapstructure:"temple_x"`
		TempleY int `mapstructure:"temple_y"`
		TempleZ int `mapstructure:"temple_z"`
		// Number of creatures each client can keep cached.
		KnownCreatureLimit int `mapstructure:"known_creature_limit"`
	} `mapstructure:"game_server"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		Enabled bool `mapstructure:"enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Port serving Prometheus metrics on /metrics.
		MetricsPort int `mapstructure:"metrics_port"`
		// Log packets to stdout.
		PacketLoggingEnabled bool `mapstructure:"packet_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`

	configDir string
}

const envVarPrefix = "OTGATE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("hostname", "0.0.0.0")
	v.SetDefault("external_ip", "127.0.0.1")
	v.SetDefault("max_connections", 3000)
	v.SetDefault("server_name", "Forgotten")
	v.SetDefault("logging.log_level", "info")
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.filename", "otgate.db")
	v.SetDefault("rsa.private_key_file", "key.pem")
	v.SetDefault("login_server.port", 7171)
	v.SetDefault("login_server.client_version_min", 1097)
	v.SetDefault("login_server.client_version_max", 1098)
	v.SetDefault("login_server.client_version_str", "10.98")
	v.SetDefault("login_server.legacy_version", 760)
	v.SetDefault("login_server.token_period_seconds", 30)
	v.SetDefault("login_server.free_premium", false)
	v.SetDefault("login_server.enable_live_casting", false)
	v.SetDefault("login_server.enable_record", false)
	v.SetDefault("login_server.motd", "")
	v.SetDefault("game_server.port", 7172)
	v.SetDefault("game_server.world_id", 0)
	v.SetDefault("game_server.map_width", 64)
	v.SetDefault("game_server.map_height", 64)
	v.SetDefault("game_server.ground_item_id", 4526)
	v.SetDefault("game_server.temple_x", 32)
	v.SetDefault("game_server.temple_y", 32)
	v.SetDefault("game_server.temple_z", 7)
	v.SetDefault("game_server.known_creature_limit", 1300)
	v.SetDefault("debugging.pprof_port", 8081)
	v.SetDefault("debugging.metrics_port", 9100)
}

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envVarPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("no config file in path %s", configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: <envVarPrefix>_DATABASE_HOST
	for _, k := range v.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := v.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", k, envVarPrefix+"_"+envVar, err)
		}
	}

	config := &Config{configDir: configPath}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config object: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.LoginServer.TokenPeriodSeconds <= 0 {
		return fmt.Errorf("login_server.token_period_seconds must be positive, got %d", c.LoginServer.TokenPeriodSeconds)
	}
	return nil
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a database URL generated from the provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}

// QualifiedPath returns file joined with the directory the config was loaded
// from, unless file is already absolute.
func (c *Config) QualifiedPath(file string) string {
	if filepath.IsAbs(file) || c.configDir == "" {
		return file
	}
	return filepath.Join(c.configDir, file)
}

// LoginAddress returns the listen address of the LOGIN server.
func (c *Config) LoginAddress() string {
	return net.JoinHostPort(c.Hostname, fmt.Sprint(c.LoginServer.Port))
}

// GameAddress returns the listen address of the GAME server.
func (c *Config) GameAddress() string {
	return net.JoinHostPort(c.Hostname, fmt.Sprint(c.GameServer.Port))
}

// SupportsVersion reports whether version falls inside the configured range.
func (c *Config) SupportsVersion(version uint16) bool {
	return int(version) >= c.LoginServer.ClientVersionMin && int(version) <= c.LoginServer.ClientVersionMax
}
