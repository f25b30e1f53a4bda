package config

import "time"

type Config struct {
	Server struct {
		Port               int           `yaml:"port"`
		ReadTimeoutStr     string        `yaml:"read_timeout"`
		WriteTimeoutStr    string        `yaml:"write_timeout"`
		ShutdownTimeoutStr string        `yaml:"shutdown_timeout"`
		ReadTimeout        time.Duration `yaml:"-"`
		WriteTimeout       time.Duration `yaml:"-"`
		ShutdownTimeout    time.Duration `yaml:"-"`
	} `yaml:"server"`

	PostgreSQL struct {
		Host               string        `yaml:"host"`
		Port               int           `yaml:"port"`
		User               string        `yaml:"user"`
		Password           string        `yaml:"password"`
		Database           string        `yaml:"database"`
		SSLMode            string        `yaml:"sslmode"`
		MaxOpenConns       int           `yaml:"max_open_conns"`
		MaxIdleConns       int           `yaml:"max_idle_conns"`
		ConnMaxLifetimeStr string        `yaml:"conn_max_lifetime"`
		ConnMaxLifetime    time.Duration `yaml:"-"`
	} `yaml:"postgresql"`

	Redis struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		PoolSize  int    `yaml:"pool_size"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Queue struct {
		// Driver is one of redis, rabbitmq, memory.
		Driver            string        `yaml:"driver"`
		RabbitMQURL       string        `yaml:"rabbitmq_url"`
		CacheSaverQueue   string        `yaml:"cache_saver_queue"`
		DepositEmailQueue string        `yaml:"deposit_email_queue"`
		ConsumerGroup     string        `yaml:"consumer_group"`
		MaxDeliveries     int           `yaml:"max_deliveries"`
		ClaimIdleStr      string        `yaml:"claim_idle"`
		ClaimIdle         time.Duration `yaml:"-"`
		BlockStr          string        `yaml:"block"`
		Block             time.Duration `yaml:"-"`
		// MaxLen caps each Redis stream; 0 keeps every entry.
		MaxLen       int64 `yaml:"max_len"`
		MemoryBuffer int   `yaml:"memory_buffer"`
	} `yaml:"queue"`

	PriceAPI struct {
		BaseURL    string        `yaml:"base_url"`
		Symbol     string        `yaml:"symbol"`
		TimeoutStr string        `yaml:"timeout"`
		Timeout    time.Duration `yaml:"-"`
	} `yaml:"price_api"`

	Price struct {
		Mode              string  `yaml:"mode"`
		HealCorruptCache  bool    `yaml:"heal_corrupt_cache"`
		BestEffortPublish bool    `yaml:"best_effort_publish"`
		TestStartPrice    float64 `yaml:"test_start_price"`
	} `yaml:"price"`

	Cache struct {
		PriceTTLStr string        `yaml:"price_ttl"`
		PriceTTL    time.Duration `yaml:"-"`
	} `yaml:"cache"`

	Workers struct {
		CachePopulators int `yaml:"cache_populators"`
		MailDispatchers int `yaml:"mail_dispatchers"`
	} `yaml:"workers"`

	Timeouts struct {
		CacheStr  string        `yaml:"cache"`
		OriginStr string        `yaml:"origin"`
		QueueStr  string        `yaml:"queue"`
		MailStr   string        `yaml:"mail"`
		Cache     time.Duration `yaml:"-"`
		Origin    time.Duration `yaml:"-"`
		Queue     time.Duration `yaml:"-"`
		Mail      time.Duration `yaml:"-"`
	} `yaml:"timeouts"`

	Auth struct {
		JWTSecret   string        `yaml:"jwt_secret"`
		TokenTTLStr string        `yaml:"token_ttl"`
		TokenTTL    time.Duration `yaml:"-"`
		Issuer      string        `yaml:"issuer"`
		BcryptCost  int           `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Mail struct {
		SendGridAPIKey string `yaml:"sendgrid_api_key"`
		SendGridHost   string `yaml:"sendgrid_host"`
		FromName       string `yaml:"from_name"`
		FromAddress    string `yaml:"from_address"`
	} `yaml:"mail"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}
