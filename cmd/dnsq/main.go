package main

import (
	"context"
	"fmt"
	"os"
	"time"

	wdns "github.com/folbricht/dnswire"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	servers    []string
	timeoutMs  int
	configFile string
	udpOnly    bool
	tcpOnly    bool
	class      string
	logLevel   uint32
}

func main() {
	var opt options
	cmd := &cobra.Command{
		Use:   "dnsq [flags] name [type]",
		Short: "Wire-level DNS query tool",
		Long: `Wire-level DNS query tool.

Sends a query to one or more DNS servers over plain UDP
and TCP and prints the decoded response. Servers are
tried in order; truncated UDP responses are retried
over TCP automatically.
`,
		Example: `  dnsq -s 8.8.8.8 example.com AAAA`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opt, args)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringSliceVarP(&opt.servers, "server", "s", nil, "server address, repeat to configure fallbacks; port defaults to 53")
	cmd.Flags().IntVarP(&opt.timeoutMs, "timeout", "t", 0, "total query timeout in milliseconds")
	cmd.Flags().StringVarP(&opt.configFile, "config", "c", "", "TOML config file")
	cmd.Flags().BoolVar(&opt.udpOnly, "udp-only", false, "don't use TCP, return truncated responses as-is")
	cmd.Flags().BoolVar(&opt.tcpOnly, "tcp-only", false, "don't use UDP")
	cmd.Flags().StringVar(&opt.class, "class", "IN", "query class (IN, CH, HS, ANY)")
	cmd.Flags().Uint32Var(&opt.logLevel, "log-level", 4, "logging level (0-6)")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opt options, args []string) error {
	config, err := loadConfig(opt.configFile)
	if err != nil {
		return err
	}

	wdns.Log.SetLevel(logrus.Level(opt.logLevel))

	servers := opt.servers
	if len(servers) == 0 {
		servers = config.Servers
	}
	if len(servers) == 0 {
		return fmt.Errorf("no servers given, use --server or a config file")
	}
	timeoutMs := opt.timeoutMs
	if timeoutMs == 0 {
		timeoutMs = config.TimeoutMs
	}

	qtype := wdns.TypeA
	if len(args) > 1 {
		t, ok := wdns.RecordTypeFromString(args[1])
		if !ok {
			return fmt.Errorf("unknown record type '%s'", args[1])
		}
		qtype = t
	}
	class, err := parseClass(opt.class)
	if err != nil {
		return err
	}

	client, err := wdns.NewClient("dnsq", time.Duration(timeoutMs)*time.Millisecond, servers...)
	if err != nil {
		return err
	}
	client.UDPEnabled = !opt.tcpOnly
	client.TCPEnabled = !opt.udpOnly

	// Queries go through the query-log decorator if one is configured
	var resolver wdns.Resolver = client
	if config.QueryLog != (queryLog{}) {
		resolver, err = wdns.NewQueryLog("query-log", client, wdns.QueryLogOptions{
			OutputFile:     config.QueryLog.OutputFile,
			SyslogNetwork:  config.QueryLog.SyslogNetwork,
			SyslogAddress:  config.QueryLog.SyslogAddress,
			SyslogPriority: config.QueryLog.SyslogPriority,
			SyslogTag:      config.QueryLog.SyslogTag,
			LogResponse:    config.QueryLog.LogResponse,
		})
		if err != nil {
			return err
		}
	}

	name, err := wdns.ParseName(args[0])
	if err != nil {
		return err
	}
	q := new(wdns.Msg)
	q.SetQuestion(name, qtype)
	q.Question[0].Class = class

	a, err := resolver.Resolve(context.Background(), q)
	if err != nil {
		return err
	}
	fmt.Print(a)
	return nil
}

func parseClass(s string) (wdns.RecordClass, error) {
	for _, c := range []wdns.RecordClass{wdns.ClassIN, wdns.ClassCH, wdns.ClassHS, wdns.ClassANY} {
		if s == c.String() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown query class '%s'", s)
}
