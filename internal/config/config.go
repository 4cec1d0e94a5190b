package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:inscription.db"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	Payline Payline `envPrefix:"PAYLINE_"`
	Fees    Fees    `envPrefix:"FEE_"`
	Orders  Orders  `envPrefix:"ORDER_"`
}

type Payline struct {
	BaseApiURL    string `env:"BASE_API_URL"`
	APIKey        string `env:"API_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// Fees is the single service fee tier applied to every order.
type Fees struct {
	FixedCents int64   `env:"FIXED_CENTS" envDefault:"100"`
	Percent    float64 `env:"PERCENT" envDefault:"2.5"`
}

type Orders struct {
	TTLMinutes   int `env:"TTL_MINUTES" envDefault:"15"`
	SweepSeconds int `env:"SWEEP_SECONDS" envDefault:"60"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
