package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	JiraURL       string `json:"jira_url" validate:"required,url"`                            // e.g., https://jira.company.com
	JiraUsername  string `json:"jira_username" validate:"required_without=JiraToken"`         // basic auth user
	JiraPassword  string `json:"jira_password" validate:"required_with=JiraUsername"`         // basic auth password
	JiraToken     string `json:"jira_token" validate:"required_without=JiraUsername"`         // personal access token, sent as Bearer
	JiraProject   string `json:"jira_project" validate:"required"`                            // Project key
	PointsField   string `json:"points_field" validate:"required,startswith=customfield_"`    // Story points custom field
	SprintField   string `json:"sprint_field" validate:"required,startswith=customfield_"`    // Sprint custom field
	DaysToAnalyze int    `json:"days_to_analyze" validate:"gte=1"`                            // Number of days to look back
	ReportCron    string `json:"report_cron" validate:"required"`                             // Column snapshot schedule
	AppEnv        string `json:"app_env" validate:"oneof=dev prod"`                           // dev logs to console
	HTTPTimeout   int    `json:"http_timeout_seconds" validate:"gte=1"`                       // Jira request timeout
	Port          string `json:"port" validate:"required,numeric"`                            // API listen port
	AllowedOrigin string `json:"allowed_origin" validate:"required"`                          // CORS origin for the API
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		JiraProject:   "SVP",
		PointsField:   "customfield_10004",
		SprintField:   "customfield_10007",
		DaysToAnalyze: 30,
		ReportCron:    "0 9 * * MON-FRI",
		AppEnv:        "dev",
		HTTPTimeout:   30,
		Port:          "8080",
		AllowedOrigin: "*",
	}
}

// LoadConfig loads configuration from file or environment variables.
// A .env file in the working directory is read into the environment first.
func LoadConfig(filename string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	// Try loading from file first
	if _, err := os.Stat(filename); err == nil {
		data, err := os.ReadFile(filename)
		if err != nil {
			return Config{}, err
		}
		config := Defaults()
		if err := json.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", filename, err)
		}
		return config, nil
	}

	// Fall back to environment variables
	config := Defaults()
	config.JiraURL = os.Getenv("JIRA_URL")
	config.JiraUsername = getenv("JIRA_USER", os.Getenv("JIRA_USERNAME"))
	config.JiraPassword = os.Getenv("JIRA_PASSWORD")
	config.JiraToken = os.Getenv("JIRA_TOKEN")
	config.JiraProject = getenv("JIRA_PROJECT", config.JiraProject)
	config.PointsField = getenv("JIRA_POINTS_FIELD", config.PointsField)
	config.SprintField = getenv("JIRA_SPRINT_FIELD", config.SprintField)
	config.ReportCron = getenv("REPORT_CRON", config.ReportCron)
	config.AppEnv = getenv("APP_ENV", config.AppEnv)
	config.Port = getenv("PORT", config.Port)
	config.AllowedOrigin = getenv("ALLOWED_ORIGIN", config.AllowedOrigin)

	var err error
	if config.DaysToAnalyze, err = getenvInt("DAYS_TO_ANALYZE", config.DaysToAnalyze); err != nil {
		return Config{}, err
	}
	if config.HTTPTimeout, err = getenvInt("HTTP_TIMEOUT_SECONDS", config.HTTPTimeout); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed on '%s' validation", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Timeout is the per-request timeout for Jira calls.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// SprintJQL selects the issues on the board's open sprints.
func (c Config) SprintJQL() string {
	return fmt.Sprintf("project = %s and sprint in openSprints()", c.JiraProject)
}

// BacklogJQL selects unfinished issues outside the open sprints.
func (c Config) BacklogJQL() string {
	return fmt.Sprintf("project = %s and sprint not in openSprints() and statusCategory not in (Done)", c.JiraProject)
}

// ReportJQL selects the issues created in the analysis window.
func (c Config) ReportJQL(now time.Time) string {
	since := now.AddDate(0, 0, -c.DaysToAnalyze).Format("2006-01-02")
	return fmt.Sprintf("project = %s AND created >= %s ORDER BY created DESC", c.JiraProject, since)
}

// CreateSampleConfig creates a sample configuration file
func CreateSampleConfig(filename string) error {
	config := Defaults()
	config.JiraURL = "https://jira.company.com"
	config.JiraUsername = "your-username"
	config.JiraPassword = "your-password"

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
