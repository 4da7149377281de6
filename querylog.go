package wdns

import (
	"context"
	"fmt"
	"os"

	syslog "github.com/RackSec/srslog"
	"github.com/sirupsen/logrus"
)

// QueryLog forwards every query unmodified to the next resolver and
// writes one line per query, and optionally per response, to STDOUT, a
// file, or a syslog server.
type QueryLog struct {
	id       string
	resolver Resolver
	opt      QueryLogOptions
	logger   *logrus.Logger
	writer   *syslog.Writer
}

var _ Resolver = &QueryLog{}

type QueryLogOptions struct {
	// Output filename, leave blank for STDOUT.
	OutputFile string

	// Syslog target, used instead of a file when set. Network is
	// "udp", "tcp" or "unix"; an empty address selects the local
	// syslog server.
	SyslogNetwork  string
	SyslogAddress  string
	SyslogPriority int
	SyslogTag      string

	// Log responses in addition to queries.
	LogResponse bool
}

// NewQueryLog returns a new instance of a query logging resolver.
func NewQueryLog(id string, resolver Resolver, opt QueryLogOptions) (*QueryLog, error) {
	l := &QueryLog{id: id, resolver: resolver, opt: opt}
	if opt.SyslogNetwork != "" || opt.SyslogAddress != "" || opt.SyslogTag != "" {
		writer, err := syslog.Dial(opt.SyslogNetwork, opt.SyslogAddress, syslog.Priority(opt.SyslogPriority), opt.SyslogTag)
		if err != nil {
			return nil, err
		}
		l.writer = writer
		return l, nil
	}
	w := os.Stdout
	if opt.OutputFile != "" {
		f, err := os.OpenFile(opt.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w = f
	}
	logger := logrus.New()
	logger.SetOutput(w)
	l.logger = logger
	return l, nil
}

// Resolve logs the query details and passes the query on unmodified.
func (r *QueryLog) Resolve(ctx context.Context, q *Msg) (*Msg, error) {
	r.log("query", q, q.Rcode)
	a, err := r.resolver.Resolve(ctx, q)
	if err == nil && a != nil && r.opt.LogResponse {
		r.log("response", q, a.Rcode)
	}
	return a, err
}

func (r *QueryLog) log(kind string, q *Msg, rcode Rcode) {
	if r.writer != nil {
		msg := fmt.Sprintf("id=%s qid=%d type=%s qtype=%s qname=%s", r.id, q.ID, kind, qType(q), qName(q))
		if kind == "response" {
			msg += " rcode=" + rcode.String()
		}
		if _, err := r.writer.Write([]byte(msg)); err != nil {
			Log.WithError(err).Error("failed to write to syslog")
		}
		return
	}
	entry := r.logger.WithFields(logrus.Fields{
		"id":    r.id,
		"qid":   q.ID,
		"qtype": qType(q),
		"qname": qName(q),
	})
	if kind == "response" {
		entry = entry.WithField("rcode", rcode.String())
	}
	entry.Info(kind)
}

func (r *QueryLog) String() string {
	return r.id
}
