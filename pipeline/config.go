package pipeline

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/lead"
)

// NotQualifiedRoute decides where a record below the threshold goes.
type NotQualifiedRoute string

const (
	// RouteUpdate writes the unqualified status and score back to the source.
	RouteUpdate NotQualifiedRoute = "update"
	// RouteSkip leaves the record untouched and moves on.
	RouteSkip NotQualifiedRoute = "skip"
)

// DefaultQualifyThreshold is the minimum score for outreach when
// Config.QualifyThreshold is nil.
const DefaultQualifyThreshold = 7.0

// Config tunes the outreach graph.
type Config struct {
	// QualifyThreshold is the minimum score for outreach. Nil means
	// DefaultQualifyThreshold; any other value, zero included, is used as is.
	QualifyThreshold *float64 `yaml:"qualify_threshold"`
	// ScoreExtractor turns the scoring verdict into a number. Defaults to ParseScore.
	ScoreExtractor func(verdict string) float64 `yaml:"-"`

	// SendDirectly dispatches the personalized email instead of only drafting it.
	SendDirectly bool `yaml:"send_directly"`
	// ExportReports saves every report of a qualified record through the exporter.
	ExportReports bool `yaml:"export_reports"`

	NotQualifiedRoute NotQualifiedRoute `yaml:"not_qualified_route"`
	// QualifiedStatus and UnqualifiedStatus are written by update_crm.
	// Both default to lead.StatusAttemptedContact.
	QualifiedStatus   string `yaml:"qualified_status"`
	UnqualifiedStatus string `yaml:"unqualified_status"`

	// NodeTimeout bounds each research and writing node. Zero means no limit.
	NodeTimeout time.Duration `yaml:"node_timeout"`
	// FetchAttempts is how often fetch_leads tries the source before the run
	// fails. Values below 2 mean a single attempt.
	FetchAttempts int `yaml:"fetch_attempts"`
	// FetchRetryDelay is the first backoff between fetch attempts.
	FetchRetryDelay time.Duration `yaml:"fetch_retry_delay"`
	// FetchTimeout bounds each fetch attempt. Zero means no limit.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// NewsWindowMonths is how far back news analysis looks.
	NewsWindowMonths int `yaml:"news_window_months"`

	// WebsiteLink and CaseStudyLink are the links the outreach report must use.
	WebsiteLink   string `yaml:"website_link"`
	CaseStudyLink string `yaml:"case_study_link"`

	// Now stamps last-contacted dates and prompts. Defaults to time.Now.
	Now func() time.Time `yaml:"-"`
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		ScoreExtractor:    ParseScore,
		ExportReports:     true,
		NotQualifiedRoute: RouteUpdate,
		QualifiedStatus:   lead.StatusAttemptedContact,
		UnqualifiedStatus: lead.StatusAttemptedContact,
		NewsWindowMonths:  6,
		FetchAttempts:     3,
		FetchRetryDelay:   time.Second,
		Now:               time.Now,
	}
}

// Threshold returns a QualifyThreshold value.
func Threshold(v float64) *float64 { return &v }

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScoreExtractor == nil {
		c.ScoreExtractor = d.ScoreExtractor
	}
	if c.NotQualifiedRoute == "" {
		c.NotQualifiedRoute = d.NotQualifiedRoute
	}
	if c.QualifiedStatus == "" {
		c.QualifiedStatus = d.QualifiedStatus
	}
	if c.UnqualifiedStatus == "" {
		c.UnqualifiedStatus = d.UnqualifiedStatus
	}
	if c.NewsWindowMonths <= 0 {
		c.NewsWindowMonths = d.NewsWindowMonths
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

var scorePattern = regexp.MustCompile(`\d+(\.\d+)?`)

// ParseScore returns the first number in verdict, or 0 when there is none.
//
//	ParseScore("**Final Score: 7.5**") == 7.5
//	ParseScore("Score: 6.9/10")       == 6.9
func ParseScore(verdict string) float64 {
	m := scorePattern.FindString(verdict)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

func (c Config) threshold() float64 {
	if c.QualifyThreshold == nil {
		return DefaultQualifyThreshold
	}
	return *c.QualifyThreshold
}

func (c Config) qualified(verdict string) bool {
	return c.ScoreExtractor(verdict) >= c.threshold()
}

func (c Config) fetchRetry() *graph.RetryConfig {
	return &graph.RetryConfig{
		MaxAttempts:   c.FetchAttempts,
		InitialDelay:  c.FetchRetryDelay,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
		RetryableErrors: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	}
}

func (c Config) today() string {
	return c.Now().Format("2006-01-02")
}
