/*
 * DNSMigrate Copyright 2026 The DNSMigrate Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy
 * of the License at http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
 * implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */
package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"

	flags "github.com/zmap/zflags"

	"github.com/dnsscience/dnsmigrate/src/compare"
	"github.com/dnsscience/dnsmigrate/src/model"
)

const (
	dnsmigrateCLIVersion = "0.1.0"
)

var parser *flags.Parser

type InputHandler interface {
	ReadAll() (string, error)
	ReadQueries() ([]model.Query, error)
}
type OutputHandler interface {
	WriteResults(results <-chan string, wg *sync.WaitGroup) error
}

// GeneralOptions core options for all commands
type GeneralOptions struct {
	SourceResolver string  `long:"source" env:"DNSMIGRATE_SOURCE" description:"resolver running the current configuration, [udp://|tcp://]host[:port]"`
	TargetResolver string  `long:"target" env:"DNSMIGRATE_TARGET" description:"resolver running the migrated configuration, [udp://|tcp://]host[:port]"`
	Timeout        int     `long:"timeout" default:"5" description:"timeout for a single upstream query, in seconds"`
	Retries        int     `long:"retries" default:"1" description:"how many times a query is retried after a transport failure"`
	Threads        int     `short:"t" long:"threads" default:"10" description:"number of concurrent comparisons for bulk and validate"`
	IgnoreTTL      bool    `long:"ignore-ttl" description:"do not count TTL differences as mismatches"`
	IgnoreOrder    bool    `long:"ignore-order" description:"do not count record order differences as mismatches"`
	Threshold      float64 `long:"threshold" default:"0.99" description:"confidence score from which a migration is recommended"`
}

// MigrationOptions select the dialects and configuration to translate
type MigrationOptions struct {
	FromDialect    string `long:"from" default:"coredns" description:"dialect of the configuration being migrated. Options: coredns, unbound"`
	ToDialect      string `long:"to" default:"unbound" description:"dialect to migrate to. Options: coredns, unbound"`
	ConfigFilePath string `short:"c" long:"config" default:"-" description:"configuration to migrate, defaults to stdin"`
}

// ShadowOptions configure the shadow command
type ShadowOptions struct {
	SampleRate        float64 `long:"sample-rate" default:"1.0" description:"fraction of observed queries compared, between 0 and 1"`
	Duration          string  `long:"duration" default:"1h" description:"how long the shadow session runs"`
	NoAlert           bool    `long:"no-alert" description:"do not alert when the mismatch rate crosses the alert threshold"`
	AlertThreshold    float64 `long:"alert-threshold" default:"0.01" description:"mismatch rate above which an alert is raised, between 0 and 1"`
	MaxSamples        int     `long:"max-samples" default:"100" description:"number of recent mismatching queries kept in the session report"`
	DnstapSocket      string  `long:"dnstap-socket" description:"unix socket to receive the source resolver's dnstap stream on"`
	QueryLogPath      string  `long:"query-log" description:"resolver query log to sample, use '-' for stdin"`
	QueryLogFormat    string  `long:"log-format" default:"coredns" description:"format of --query-log. Options: coredns, unbound"`
	SyntheticInterval string  `long:"synthetic-interval" default:"1s" description:"interval between queries replayed from --input-file when no live source is given"`
	ExcludeClients    string  `long:"exclude-clients" description:"client networks whose queries are never sampled: a file with one CIDR per line, or a comma separated list"`
	MetricsAddr       string  `long:"metrics-addr" description:"address to serve prometheus metrics on, e.g. :9153"`
	StatusFilePath    string  `long:"status-file" default:"-" description:"where periodic session status is written, defaults to stderr"`
}

// ApplicationOptions input, output and logging
type ApplicationOptions struct {
	InputFilePath   string `short:"f" long:"input-file" default:"-" description:"queries to compare, one 'domain [type]' per line, defaults to stdin"`
	OutputFilePath  string `short:"o" long:"output-file" default:"-" description:"where JSON output is saved, defaults to stdout"`
	LogFilePath     string `long:"log-file" default:"-" description:"where logs are saved, defaults to stderr"`
	Verbosity       int    `long:"verbosity" default:"3" description:"log verbosity: 1 (lowest)--5 (highest)"`
	ResultVerbosity string `long:"result-verbosity" default:"normal" description:"sets verbosity of the JSON output. Options: short, normal, long"`
	Progress        bool   `long:"progress" description:"show a progress bar on stderr for bulk and validate"`
	FailBelow       bool   `long:"fail-not-recommended" description:"exit with status 2 when bulk or validate do not recommend the migration"`
	Version         bool   `long:"version" description:"print the version and exit"`
}

type CLIConf struct {
	GeneralOptions
	MigrationOptions
	ShadowOptions
	ApplicationOptions
	OutputGroups  []string
	Command       string
	Args          []string
	InputHandler  InputHandler
	ConfigHandler InputHandler
	OutputHandler OutputHandler
	// Comparator is built from --source and --target when nil.
	Comparator *compare.Comparator
}

func Execute() {
	posArgs, _, _, err := parser.ParseCommandLine(os.Args[1:])
	if err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if cliconf.Version {
		fmt.Println("dnsmigrate", dnsmigrateCLIVersion)
		return
	}
	if len(posArgs) == 0 {
		fmt.Fprintf(os.Stderr, "no command specified. Options: %s\n", strings.Join(Commands(), ", "))
		os.Exit(1)
	}
	cliconf.Command = strings.ToLower(posArgs[0])
	cliconf.Args = posArgs[1:]
	Run(cliconf)
}

var cliconf = CLIConf{}

func init() {
	parser = flags.NewParser(&cliconf, flags.Default)
	parser.Usage = "[OPTIONS] COMMAND [ARGS]\n\nCommands: " + strings.Join(Commands(), ", ")
}
