// Package urlcheck provides URL validators for redirect targets.
package urlcheck

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	shortener "github.com/vsavik/url-shortener"
)

// Validator kinds accepted by New.
const (
	KindBasic  = "basic"
	KindStrict = "strict"
)

// DefaultMaxLength is the longest URL Strict accepts by default.
const DefaultMaxLength = 2048

// Config configures a Strict validator.
type Config struct {
	MaxLength       int
	BlockedDomains  []string
	AllowPrivateIPs bool
}

// DefaultConfig returns the Strict defaults: 2048 characters, no blocked
// domains, private addresses rejected.
func DefaultConfig() Config {
	return Config{MaxLength: DefaultMaxLength}
}

// New returns the validator named by kind. cfg only applies to "strict".
func New(kind string, cfg Config) (shortener.URLValidator, error) {
	switch strings.ToLower(kind) {
	case KindBasic, "":
		return Basic(), nil
	case KindStrict:
		return NewStrict(cfg), nil
	default:
		return nil, fmt.Errorf("urlcheck: unknown validator %q", kind)
	}
}

// Basic returns the service's default rule. See shortener.IsValidURL.
func Basic() shortener.URLValidator {
	return shortener.URLValidatorFunc(shortener.IsValidURL)
}

var _ shortener.URLValidator = (*Strict)(nil)

// Strict parses the URL and requires an http or https scheme and a host.
// It also enforces a length limit and a domain block list, and by default
// rejects loopback and private addresses.
type Strict struct {
	maxLength       int
	blockedDomains  []string
	blockPrivateIPs bool
}

// NewStrict creates a Strict validator.
func NewStrict(cfg Config) *Strict {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}

	blocked := make([]string, 0, len(cfg.BlockedDomains))
	for _, d := range cfg.BlockedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			blocked = append(blocked, d)
		}
	}

	return &Strict{
		maxLength:       cfg.MaxLength,
		blockedDomains:  blocked,
		blockPrivateIPs: !cfg.AllowPrivateIPs,
	}
}

// IsValid reports whether Check accepts u.
func (v *Strict) IsValid(u shortener.URL) bool {
	return v.Check(u) == nil
}

// Check explains why u is rejected. Errors match shortener.ErrInvalidURL.
func (v *Strict) Check(u shortener.URL) error {
	raw := string(u)

	if strings.TrimSpace(raw) == "" {
		return invalid("url is empty")
	}

	if len(raw) > v.maxLength {
		return invalid("url exceeds %d characters", v.maxLength)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return invalid("url could not be parsed")
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return invalid("scheme must be http or https")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return invalid("url must have a host")
	}

	if v.isBlockedDomain(host) {
		return invalid("domain %q is not allowed", host)
	}

	if v.blockPrivateIPs && isPrivateHost(host) {
		return invalid("private address %q is not allowed", host)
	}

	return nil
}

func (v *Strict) isBlockedDomain(host string) bool {
	for _, blocked := range v.blockedDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", shortener.ErrInvalidURL, fmt.Sprintf(format, args...))
}
