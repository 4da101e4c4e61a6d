// Package config loads and validates ikigai's JSON configuration file (§6 of
// the spec) and resolves the four directory roles from environment
// variables, in the teacher's internal/config layout.
package config

import "github.com/dohr-michael/ikigai/internal/ikerr"

// Config is the root, validated configuration for ikigai.
type Config struct {
	OpenAIModel               string `json:"openai_model"`
	OpenAITemperature         float64 `json:"openai_temperature"`
	OpenAIMaxCompletionTokens int    `json:"openai_max_completion_tokens"`
	OpenAISystemMessage       *string `json:"openai_system_message"`

	ListenAddress string `json:"listen_address"`
	ListenPort    int    `json:"listen_port"`

	MaxToolTurns  int `json:"max_tool_turns"`
	MaxOutputSize int `json:"max_output_size"`

	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
}

// Validate applies the range checks spec §6 requires, returning an
// OutOfRange *ikerr.Error on the first violation found.
func (c *Config) Validate() error {
	if c.OpenAITemperature < 0.0 || c.OpenAITemperature > 2.0 {
		return ikerr.Newf(ikerr.OutOfRange, "openai_temperature %v out of range [0.0, 2.0]", c.OpenAITemperature)
	}
	if c.OpenAIMaxCompletionTokens < 1 || c.OpenAIMaxCompletionTokens > 128000 {
		return ikerr.Newf(ikerr.OutOfRange, "openai_max_completion_tokens %d out of range [1, 128000]", c.OpenAIMaxCompletionTokens)
	}
	if c.ListenPort < 1024 || c.ListenPort > 65535 {
		return ikerr.Newf(ikerr.OutOfRange, "listen_port %d out of range [1024, 65535]", c.ListenPort)
	}
	if c.DBPort < 1 || c.DBPort > 65535 {
		return ikerr.Newf(ikerr.OutOfRange, "db_port %d out of range [1, 65535]", c.DBPort)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OpenAIModel:               "gpt-5",
		OpenAITemperature:         1.0,
		OpenAIMaxCompletionTokens: 4096,
		ListenAddress:             "127.0.0.1",
		ListenPort:                18420,
		MaxToolTurns:              25,
		MaxOutputSize:             1 << 20,
		DBHost:                    "localhost",
		DBPort:                    5432,
		DBName:                    "ikigai",
		DBUser:                    "ikigai",
	}
}
