// Package eula implements the interactive license acceptance gate that runs
// before anything is installed.
//
// The gate consults an injected override first. Only the exact values "y" and
// "Y" bypass the prompt. Otherwise it prints the license notice and asks for
// YES or NO until it gets one of them, or until the input stream ends.
package eula

import (
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
)

// DefaultLicenseURL is where the sqlcmd license terms are published.
const DefaultLicenseURL = "https://github.com/microsoft/go-sqlcmd/blob/main/LICENSE"

// EnvVar is the environment variable conventionally used for the override.
const EnvVar = "ACCEPT_EULA"

// Decision is the outcome of one gate evaluation.
type Decision int

const (
	Accepted   Decision = iota // Override matched or YES was entered
	Declined                   // NO was entered
	Unreadable                 // Input ended before an answer was read
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	case Unreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Gate asks for license acceptance on a line source and reports the answer.
type Gate struct {
	override   string
	licenseURL string
	in         LineSource
	out        io.Writer
}

// Option configures a Gate.
type Option func(*Gate)

// WithOverride sets the unattended-acceptance value, normally the content of
// ACCEPT_EULA. Only "y" and "Y" are recognized.
func WithOverride(value string) Option {
	return func(g *Gate) {
		g.override = value
	}
}

// WithLicenseURL changes the URL shown in the license notice.
func WithLicenseURL(url string) Option {
	return func(g *Gate) {
		if url != "" {
			g.licenseURL = url
		}
	}
}

// New creates a gate reading answers from in and writing prompts to out.
func New(in LineSource, out io.Writer, opts ...Option) *Gate {
	g := &Gate{
		licenseURL: DefaultLicenseURL,
		in:         in,
		out:        out,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckEulaAcceptance reports whether installation may proceed.
func (g *Gate) CheckEulaAcceptance() bool {
	return g.Evaluate() == Accepted
}

// Evaluate runs the gate and returns the decision it reached.
func (g *Gate) Evaluate() Decision {
	// Case-sensitive on purpose; the prompt answer below is not.
	if g.override == "y" || g.override == "Y" {
		log.WithField("env", EnvVar).Debug("license terms accepted by override")
		return Accepted
	}

	g.println("The license terms for this product can be downloaded from")
	g.println(g.licenseURL + ".")
	g.println("By entering 'YES', you indicate that you accept the license terms.")
	g.println("")

	for {
		g.println("Do you accept the license terms? (Enter YES or NO)")

		line, err := g.in.ReadLine()
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Debug("failed to read license answer")
			}
			g.println("Installation terminated: Could not prompt for license acceptance.")
			g.println("If you are performing an unattended installation, you may set")
			g.println(EnvVar + " to Y to indicate your acceptance of the license terms.")
			return Unreadable
		}

		answer := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(answer, "YES"):
			log.Debug("license terms accepted")
			return Accepted
		case strings.EqualFold(answer, "NO"):
			g.println("Installation terminated: License terms not accepted.")
			return Declined
		default:
			log.Debugf("unrecognized license answer %q", answer)
			g.println("Please enter YES or NO")
		}
	}
}

func (g *Gate) println(s string) {
	fmt.Fprintln(g.out, s)
}
