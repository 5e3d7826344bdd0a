package config

import (
	"fmt"
	"strconv"
)

// Environment variables honored as fallbacks for unset override flags.
// Lookups happen only in ApplyEnv; no other component reads the environment.
const (
	EnvBaseURL = "PHONE_AGENT_BASE_URL"
	EnvModel   = "PHONE_AGENT_MODEL"
)

// Overrides is the shared agent configuration forwarded to every worker
// invocation. It is assembled exactly once at startup from explicit flag
// values (plus ApplyEnv fallbacks) and threaded by reference into the
// launcher. Zero/nil fields are omitted from the forwarded argv.
type Overrides struct {
	BaseURL        string
	Model          string
	ADBDelay       *float64 // seconds between adb commands
	CaptureTimeout *int     // screenshot timeout in seconds
	Quiet          bool
	Lang           string // "cn" or "en"
}

// ApplyEnv fills BaseURL and Model from the PHONE_AGENT_* environment when
// the flags left them empty. lookup is os.LookupEnv in production.
func (o *Overrides) ApplyEnv(lookup func(string) (string, bool)) {
	if o.BaseURL == "" {
		if v, ok := lookup(EnvBaseURL); ok {
			o.BaseURL = v
		}
	}
	if o.Model == "" {
		if v, ok := lookup(EnvModel); ok {
			o.Model = v
		}
	}
}

// Validate rejects override values the agent would refuse.
func (o *Overrides) Validate() error {
	if o.Lang != "" && o.Lang != "cn" && o.Lang != "en" {
		return fmt.Errorf("invalid lang %q: must be cn or en", o.Lang)
	}
	return nil
}

// Args renders the argv fragment forwarded to each worker. Only values
// that were explicitly provided appear.
func (o *Overrides) Args() []string {
	var args []string
	if o.BaseURL != "" {
		args = append(args, "--base-url", o.BaseURL)
	}
	if o.Model != "" {
		args = append(args, "--model", o.Model)
	}
	if o.ADBDelay != nil {
		args = append(args, "--adb-delay", strconv.FormatFloat(*o.ADBDelay, 'g', -1, 64))
	}
	if o.CaptureTimeout != nil {
		args = append(args, "--screenshot-timeout", strconv.Itoa(*o.CaptureTimeout))
	}
	if o.Quiet {
		args = append(args, "--quiet")
	}
	if o.Lang != "" {
		args = append(args, "--lang", o.Lang)
	}
	return args
}
