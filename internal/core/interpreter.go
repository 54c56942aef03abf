package core

import (
	"bufio"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"packmgr-deploy/internal/types"
)

const InvalidResponseMessage = "Invalid response; is the packmgr path valid?"

const diagnosticPrefix = "E "

// statusLinePattern matches the package manager's one-line status record,
// e.g. `<status code="200">ok</status>`. The text runs to the last `<` on the
// line, so inline markup survives; bareStatusPattern covers lines without one.
var (
	statusLinePattern = regexp.MustCompile(`code="([0-9]+)">(.*)<`)
	bareStatusPattern = regexp.MustCompile(`code="([0-9]+)">([^<]*)$`)
)

// ResponseInterpreter folds the lines of a package manager response into a
// verdict. The last status line wins; "E " diagnostics from the whole stream
// are appended to it.
type ResponseInterpreter struct {
	host        string
	matched     bool
	status      string
	diagnostics []string
	lines       int
}

func NewResponseInterpreter(host string) *ResponseInterpreter {
	return &ResponseInterpreter{host: host}
}

func (r *ResponseInterpreter) Feed(line string) {
	line = strings.ReplaceAll(line, "\r", "")
	r.lines++
	log.Debug().Str("host", r.host).Msg(line)
	if strings.HasPrefix(line, diagnosticPrefix) {
		r.diagnostics = append(r.diagnostics, strings.TrimPrefix(line, diagnosticPrefix))
	}
	match := statusLinePattern.FindStringSubmatch(line)
	if match == nil {
		match = bareStatusPattern.FindStringSubmatch(line)
	}
	if match == nil {
		return
	}
	r.matched = true
	if match[1] == "200" {
		r.status = ""
	} else {
		r.status = match[2]
	}
}

// Verdict is empty on success and a human readable failure otherwise.
func (r *ResponseInterpreter) Verdict() string {
	if !r.matched {
		return InvalidResponseMessage
	}
	var b strings.Builder
	b.WriteString(r.status)
	for _, diagnostic := range r.diagnostics {
		b.WriteString("\n")
		b.WriteString(diagnostic)
	}
	return b.String()
}

func (r *ResponseInterpreter) Kind() types.FailureKind {
	if !r.matched {
		return types.FailureUnrecognizedResponse
	}
	if r.Verdict() == "" {
		return types.FailureNone
	}
	return types.FailureSubmissionRejected
}

// Consume reads body to the end, feeding every line. A read error ends the
// stream early; the verdict reflects whatever was seen until then.
func (r *ResponseInterpreter) Consume(ctx context.Context, body io.Reader) error {
	reader := bufio.NewReader(body)
	log.Debug().Str("host", r.host).Msgf("Output from %s:", r.host)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadString('\n')
		if line != "" {
			r.Feed(strings.ToValidUTF8(strings.TrimSuffix(line, "\n"), "�"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
