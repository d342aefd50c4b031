// Package config provides functionality for managing configuration options
// for the application using command-line flags, a YAML file, a .env file and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `yaml:"server_address"`

	// DatabaseDSN overrides the DB* fields when set.
	DatabaseDSN string `yaml:"database_dsn"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_database"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBSSLMode  string `yaml:"db_sslmode"`

	// APIToken is the shared bearer secret.
	APIToken string `yaml:"api_token"`
	// APITokenHash is a bcrypt hash of the bearer secret; it takes precedence over APIToken.
	APITokenHash string `yaml:"api_token_hash"`

	// BackupDir receives automatic backups. Empty disables them.
	BackupDir       string        `yaml:"backup_dir"`
	BackupInterval  time.Duration `yaml:"backup_interval"`
	BackupRetention int           `yaml:"backup_retention"`

	// CVDir is where uploaded résumés are stored.
	CVDir string `yaml:"cv_dir"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	CORSOrigins []string `yaml:"cors_origins"`
	LogLevel    string   `yaml:"log_level"`

	// Config is the path to the YAML config file.
	Config string `yaml:"-"`
	// EnvFile is the path to the .env file.
	EnvFile string `yaml:"-"`
}

// Parse reads flags, the config file, the .env file and the environment, in
// that order, each overriding the previous one. Errors are fatal.
func Parse() *Options {
	opts, err := parse(flag.CommandLine, os.Args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return opts
}

func parse(fset *flag.FlagSet, args []string, lookup func(string) (string, bool)) (*Options, error) {
	opts := &Options{}
	var origins string

	fset.StringVar(&opts.Addr, "a", "localhost:8080", "run on ip:port server")
	fset.StringVar(&opts.DatabaseDSN, "d", "", "db connection string")
	fset.StringVar(&opts.DBHost, "db-host", "localhost", "database host")
	fset.IntVar(&opts.DBPort, "db-port", 5432, "database port")
	fset.StringVar(&opts.DBName, "db-name", "venditori", "database name")
	fset.StringVar(&opts.DBUser, "db-user", "postgres", "database user")
	fset.StringVar(&opts.DBPassword, "db-password", "", "database password")
	fset.StringVar(&opts.DBSSLMode, "db-sslmode", "disable", "database sslmode")
	fset.StringVar(&opts.BackupDir, "backup-dir", "backups", "automatic backup directory")
	fset.DurationVar(&opts.BackupInterval, "backup-interval", 24*time.Hour, "automatic backup interval")
	fset.IntVar(&opts.BackupRetention, "backup-retention", 7, "automatic backups to keep")
	fset.StringVar(&opts.CVDir, "cv-dir", "cv_files", "résumé directory")
	fset.StringVar(&opts.TLSCert, "tls-cert", "", "TLS certificate file")
	fset.StringVar(&opts.TLSKey, "tls-key", "", "TLS key file")
	fset.StringVar(&origins, "cors", "*", "comma-separated allowed CORS origins")
	fset.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	fset.StringVar(&opts.Config, "config", "config.yaml", "path to config file")
	fset.StringVar(&opts.Config, "c", "config.yaml", "path to config file (shorthand)")
	fset.StringVar(&opts.EnvFile, "env", ".env", "path to .env file")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	opts.CORSOrigins = splitList(origins)

	if configPath, ok := lookup("CONFIG"); ok && configPath != "" {
		opts.Config = configPath
	}
	if err := opts.loadFile(opts.Config); err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := opts.applyEnv(env); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadFile overlays the YAML file at path. A missing file is not an error.
func (o *Options) loadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error while reading env file: %w", err)
	}
	return values, nil
}

func (o *Options) applyEnv(env func(string) (string, bool)) error {
	strs := map[string]*string{
		"SERVER_ADDRESS": &o.Addr,
		"DATABASE_DSN":   &o.DatabaseDSN,
		"DB_HOST":        &o.DBHost,
		"DB_DATABASE":    &o.DBName,
		"DB_USER":        &o.DBUser,
		"DB_PASSWORD":    &o.DBPassword,
		"DB_SSLMODE":     &o.DBSSLMode,
		"API_TOKEN":      &o.APIToken,
		"API_TOKEN_HASH": &o.APITokenHash,
		"BACKUP_DIR":     &o.BackupDir,
		"CV_DIR":         &o.CVDir,
		"TLS_CERT":       &o.TLSCert,
		"TLS_KEY":        &o.TLSKey,
		"LOG_LEVEL":      &o.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := env(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DB_PORT":          &o.DBPort,
		"BACKUP_RETENTION": &o.BackupRetention,
	}
	for key, dst := range ints {
		if v, ok := env(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v, ok := env("BACKUP_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BACKUP_INTERVAL: %w", err)
		}
		o.BackupInterval = d
	}
	if v, ok := env("CORS_ORIGINS"); ok && v != "" {
		o.CORSOrigins = splitList(v)
	}
	return nil
}

// DSN returns DatabaseDSN when set, otherwise a lib/pq key/value connection
// string built from the DB* fields.
func (o *Options) DSN() string {
	if o.DatabaseDSN != "" {
		return o.DatabaseDSN
	}
	parts := []string{
		"host=" + dsnValue(o.DBHost),
		"port=" + strconv.Itoa(o.DBPort),
		"dbname=" + dsnValue(o.DBName),
		"user=" + dsnValue(o.DBUser),
	}
	if o.DBPassword != "" {
		parts = append(parts, "password="+dsnValue(o.DBPassword))
	}
	if o.DBSSLMode != "" {
		parts = append(parts, "sslmode="+dsnValue(o.DBSSLMode))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes v when it is empty or holds spaces, quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
