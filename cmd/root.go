package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "job-apply-agent"
)

type Config struct {
	ListenAddr string `mapstructure:"listen-addr"`
	DataDir    string `mapstructure:"data-dir"`

	Portal *PortalConfig `mapstructure:"portal"`
	Mongo  *MongoConfig  `mapstructure:"mongo"`
	Auth   *AuthConfig   `mapstructure:"auth"`
	AI     *AIConfig     `mapstructure:"ai"`
	Agent  *AgentConfig  `mapstructure:"agent"`
	Queue  *QueueConfig  `mapstructure:"queue"`
}

type PortalConfig struct {
	BaseURL string `mapstructure:"base-url"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt-secret"`
	JWTSecretFile string        `mapstructure:"jwt-secret-file"`
	TokenTTL      time.Duration `mapstructure:"token-ttl"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type AgentConfig struct {
	RejectBelow      int           `mapstructure:"reject-below"`
	ClarifyBelow     int           `mapstructure:"clarify-below"`
	MaxSubmitRetries int           `mapstructure:"max-submit-retries"`
	RetryDelay       time.Duration `mapstructure:"retry-delay"`
	PassInterval     time.Duration `mapstructure:"pass-interval"`
	BatchLimit       int           `mapstructure:"batch-limit"`
}

type QueueConfig struct {
	LockTimeout time.Duration `mapstructure:"lock-timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-apply-agent finds matching job postings and applies to them on the user's behalf",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("auth.jwt-secret-file", "JAA_JWT_SECRET_FILE"); err != nil {
		log.Fatalf("binding JAA_JWT_SECRET_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "JAA_GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding JAA_GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("mongo.uri", "JAA_MONGO_URI"); err != nil {
		log.Fatalf("binding JAA_MONGO_URI environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-apply-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the serve command now. If there is no config,
	// we can skip initialization.
	if serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
