package types

import (
	"strings"
	"time"
)

type PackmgrKind string

const (
	PackmgrKindAEM    PackmgrKind = "AEM"
	PackmgrKindSling  PackmgrKind = "SLING"
	PackmgrKindCustom PackmgrKind = "custom"
)

const (
	PackmgrPathAEM   = "/crx/packmgr/service.jsp"
	PackmgrPathSling = "/bin/cpm/package.service.html"
)

// PackmgrPath is the package manager service location: one of the two known
// presets or a literal path.
type PackmgrPath struct {
	Kind   PackmgrKind
	Custom string
}

// ParsePackmgrPath maps "AEM" and "SLING" to their presets and treats anything
// else as a literal path. Empty input selects the AEM preset.
func ParsePackmgrPath(value string) PackmgrPath {
	trimmed := strings.TrimSpace(value)
	switch trimmed {
	case "", string(PackmgrKindAEM):
		return PackmgrPath{Kind: PackmgrKindAEM}
	case string(PackmgrKindSling):
		return PackmgrPath{Kind: PackmgrKindSling}
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return PackmgrPath{Kind: PackmgrKindCustom, Custom: trimmed}
}

func (p PackmgrPath) Path() string {
	switch p.Kind {
	case PackmgrKindSling:
		return PackmgrPathSling
	case PackmgrKindCustom:
		if p.Custom != "" {
			return p.Custom
		}
	}
	return PackmgrPathAEM
}

type DeployConfig struct {
	Targets      []Target
	Packmgr      PackmgrPath
	CheckBundles bool
	Timeout      time.Duration
}

// BundleStatusSnapshot holds the five bundle counters reported by the OSGi
// console. Only positions 3 and 4 (stopping, failed) matter for readiness.
type BundleStatusSnapshot []int

func (s BundleStatusSnapshot) Ready() bool {
	return len(s) == 5 && s[3] == 0 && s[4] == 0
}

// StatusResponse is the raw outcome of one bundle status query that produced
// an HTTP response.
type StatusResponse struct {
	StatusCode int
	Body       []byte
}

type FailureKind string

const (
	FailureNone                 FailureKind = ""
	FailureNetwork              FailureKind = "network"
	FailureStatusQuery          FailureKind = "status-query"
	FailureStatusParse          FailureKind = "status-parse"
	FailureReadinessExhausted   FailureKind = "readiness-exhausted"
	FailureSubmissionRejected   FailureKind = "submission-rejected"
	FailureUnrecognizedResponse FailureKind = "unrecognized-response"
)

// DeliveryResult is the terminal outcome of one target pipeline. An empty
// ErrorMessage is the only success signal.
type DeliveryResult struct {
	ErrorMessage string
	Host         string
	Elapsed      time.Duration
	Timestamp    time.Time
	Kind         FailureKind
}

func (r DeliveryResult) Succeeded() bool {
	return r.ErrorMessage == ""
}

func (r DeliveryResult) ElapsedMs() int64 {
	return r.Elapsed.Milliseconds()
}

const isoTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (r DeliveryResult) TimestampISO() string {
	return r.Timestamp.UTC().Format(isoTimestampLayout)
}
