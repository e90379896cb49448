package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr     = ":8080"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultTimezone     = "UTC"
	defaultQueryTimeout = 10 * time.Second
	defaultEventStream  = "STAFFING_LEDGER"
	defaultEventSubject = "ledger"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Events   EventsConfig   `yaml:"events"`
}

// ServerConfig は待ち受けに関する設定です。ListenAddr は gRPC ヘルスチェック用です。
// RequestTimeout は HTTP リクエスト全体の上限で、0 なら設定しません。
type ServerConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	HTTPAddr          string        `yaml:"http_addr"`
	RequestTimeoutRaw string        `yaml:"request_timeout"`
	RequestTimeout    time.Duration `yaml:"-"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// LogConfig はロガーの設定です。Format は json または console です。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LedgerConfig はアサイン台帳の設定です。
type LedgerConfig struct {
	// Timezone は「今日」を判定するタイムゾーンです。
	Timezone string `yaml:"timezone"`
	// QueryTimeout はデータストア呼び出し 1 回（トランザクション単位）ごとの期限です。
	// 一括再計算ではクライアントごとに新しい期限が設定されます。
	QueryTimeoutRaw string         `yaml:"query_timeout"`
	QueryTimeout    time.Duration  `yaml:"-"`
	Location        *time.Location `yaml:"-"`
}

// EventsConfig はアサイン変更イベントの送出設定です。NATSURL が空なら送出しません。
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Enabled はイベント送出が有効かを返します。
func (e EventsConfig) Enabled() bool {
	return e.NATSURL != ""
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ResolvePath は明示指定、CONFIG_PATH 環境変数、既定値の順に設定ファイルのパスを決めます。
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = defaultHTTPAddr
	}
	requestTimeout, err := parseDurationAllowEmpty(c.Server.RequestTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: server.request_timeout: %w", err)
	}
	if requestTimeout < 0 {
		return fmt.Errorf("config: server.request_timeout must not be negative")
	}
	c.Server.RequestTimeout = requestTimeout

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	switch c.Log.Format {
	case "":
		c.Log.Format = defaultLogFormat
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}

	if err := c.Ledger.validateAndNormalize(); err != nil {
		return err
	}

	c.Events.normalize()
	return nil
}

func (e *EventsConfig) normalize() {
	if !e.Enabled() {
		return
	}
	if e.Stream == "" {
		e.Stream = defaultEventStream
	}
	if e.SubjectPrefix == "" {
		e.SubjectPrefix = defaultEventSubject
	}
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (l *LedgerConfig) validateAndNormalize() error {
	if l.Timezone == "" {
		l.Timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return fmt.Errorf("config: ledger.timezone: %w", err)
	}
	l.Location = loc

	timeout, err := parseDurationAllowEmpty(l.QueryTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: ledger.query_timeout: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("config: ledger.query_timeout must not be negative")
	}
	if timeout == 0 {
		timeout = defaultQueryTimeout
	}
	l.QueryTimeout = timeout

	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
