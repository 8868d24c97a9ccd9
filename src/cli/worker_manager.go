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
	"context"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/cli/iohandlers"
	"github.com/dnsscience/dnsmigrate/src/compare"
	"github.com/dnsscience/dnsmigrate/src/internal/util"
	"github.com/dnsscience/dnsmigrate/src/migrate"
	"github.com/dnsscience/dnsmigrate/src/model"
)

type commandFunc func(ctx context.Context, gc *CLIConf) error

// errNotRecommended is returned by bulk and validate with --fail-not-recommended once their report is written.
var errNotRecommended = errors.New("migration not recommended")

var commands = map[string]commandFunc{
	"plan":     runPlan,
	"convert":  runConvert,
	"compare":  runCompare,
	"bulk":     runBulk,
	"validate": runValidate,
	"shadow":   runShadow,
}

// Commands lists the command names in alphabetical order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// populateCLIConfig sets up logging and the i/o handlers from the command line arguments.
func populateCLIConfig(gc *CLIConf) *CLIConf {
	if gc.LogFilePath != "" && gc.LogFilePath != "-" {
		f, err := os.OpenFile(gc.LogFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, util.DefaultFilePermissions)
		if err != nil {
			log.Fatalf("Unable to open log file (%s): %s", gc.LogFilePath, err.Error())
		}
		log.SetOutput(f)
	}

	// Translate the assigned verbosity level to a logrus log level.
	logLevel := log.InfoLevel
	switch gc.Verbosity {
	case 1: // Fatal
		logLevel = log.FatalLevel
	case 2: // Error
		logLevel = log.ErrorLevel
	case 3: // Warnings  (default)
		logLevel = log.WarnLevel
	case 4: // Information
		logLevel = log.InfoLevel
	case 5: // Debugging
		logLevel = log.DebugLevel
	default:
		log.Fatal("Unknown verbosity level specified. Must be between 1 (lowest)--5 (highest)")
	}
	log.SetLevel(logLevel)

	groups, err := populateOutputGroups(gc)
	if err != nil {
		log.Fatal(err)
	}
	gc.OutputGroups = groups

	if gc.InputHandler == nil {
		gc.InputHandler = iohandlers.NewFileInputHandler(gc.InputFilePath)
	}
	if gc.ConfigHandler == nil {
		gc.ConfigHandler = iohandlers.NewFileInputHandler(gc.ConfigFilePath)
	}
	if gc.OutputHandler == nil {
		gc.OutputHandler = iohandlers.NewFileOutputHandler(gc.OutputFilePath)
	}
	return gc
}

// Run executes the command named by gc.Command. SIGINT and SIGTERM cancel a running command, which still writes
// what it has gathered.
func Run(gc CLIConf) {
	command, ok := commands[gc.Command]
	if !ok {
		log.Fatalf("Unknown command %q. Options: %s", gc.Command, strings.Join(Commands(), ", "))
	}
	gc = *populateCLIConfig(&gc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := command(ctx, &gc)
	if errors.Is(err, errNotRecommended) {
		log.Errorf("%s: %v", gc.Command, err)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", gc.Command, err)
	}
}

func readPlan(gc *CLIConf) (*migrate.Plan, error) {
	if err := validateDialects(gc); err != nil {
		return nil, err
	}
	text, err := gc.ConfigHandler.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "could not read configuration")
	}
	plan, err := migrate.NewPlan(text, gc.FromDialect, gc.ToDialect)
	if err != nil {
		return nil, err
	}
	logWarnings(plan)
	return plan, nil
}

func logWarnings(plan *migrate.Plan) {
	for _, w := range plan.Warnings {
		log.Warn(w)
	}
	log.Infof("%s to %s plan: %d steps, %d warnings, %s risk", plan.Source, plan.Target, len(plan.Steps), len(plan.Warnings), plan.Risk)
}

func runPlan(_ context.Context, gc *CLIConf) error {
	plan, err := readPlan(gc)
	if err != nil {
		return err
	}
	return writeResult(gc, plan)
}

// runConvert writes only the generated configuration.
func runConvert(_ context.Context, gc *CLIConf) error {
	plan, err := readPlan(gc)
	if err != nil {
		return err
	}
	return writeOutput(gc.OutputHandler, strings.TrimSuffix(plan.TargetText, "\n"))
}

func newComparator(gc *CLIConf) (*compare.Comparator, error) {
	if gc.Comparator != nil {
		return gc.Comparator, nil
	}
	config, err := populateResolverConfigs(gc)
	if err != nil {
		return nil, err
	}
	return compare.New(config)
}

// runCompare compares the single query given as DOMAIN [TYPE].
func runCompare(ctx context.Context, gc *CLIConf) error {
	if len(gc.Args) == 0 || len(gc.Args) > 2 {
		return errors.New("usage: compare DOMAIN [TYPE]")
	}
	c, err := newComparator(gc)
	if err != nil {
		return err
	}
	qtype := ""
	if len(gc.Args) == 2 {
		qtype = gc.Args[1]
	}
	res, err := c.CompareName(ctx, gc.Args[0], qtype, compareOptions(gc))
	if err != nil {
		return err
	}
	for _, d := range res.Differences {
		log.Info(d.String())
	}
	return writeResult(gc, res)
}

// readQueries returns the queries named on the command line, or else those of --input-file.
func readQueries(gc *CLIConf) ([]model.Query, error) {
	if len(gc.Args) == 0 {
		return gc.InputHandler.ReadQueries()
	}
	queries := make([]model.Query, 0, len(gc.Args))
	for _, arg := range gc.Args {
		q, ok, err := iohandlers.ParseQueryLine(strings.ReplaceAll(arg, "/", " "))
		if err != nil {
			return nil, err
		}
		if ok {
			queries = append(queries, q)
		}
	}
	return queries, nil
}

// withProgress adds a progress bar over n comparisons to opts when --progress is set.
func withProgress(gc *CLIConf, opts compare.BulkOptions, n int) (compare.BulkOptions, func()) {
	if !gc.Progress || n == 0 {
		return opts, func() {}
	}
	bar := progressbar.Default(int64(n), "comparing")
	opts.OnResult = func(res *compare.Result) {
		if !res.Match {
			bar.Describe("comparing (last mismatch: " + res.Query.String() + ")")
		}
		_ = bar.Add(1)
	}
	return opts, func() { _ = bar.Finish() }
}

// checkReport logs the report and applies --fail-not-recommended.
func checkReport(gc *CLIConf, report *compare.Report) error {
	logReport(report)
	if gc.FailBelow && report.Recommendation != compare.SafeToProceed {
		return errNotRecommended
	}
	return nil
}

func logReport(report *compare.Report) {
	log.Infof("%d tested, %d matches, %d mismatches, %d errors: confidence %.4f (%s), %s",
		report.Tested, report.Matches, report.Mismatches, report.Errors, report.ConfidenceScore, report.Tier, report.Recommendation)
}

func runBulk(ctx context.Context, gc *CLIConf) error {
	opts, err := populateBulkOptions(gc)
	if err != nil {
		return err
	}
	queries, err := readQueries(gc)
	if err != nil {
		return errors.Wrap(err, "could not read queries")
	}
	c, err := newComparator(gc)
	if err != nil {
		return err
	}
	opts, finish := withProgress(gc, opts, len(queries))
	report, err := c.Bulk(ctx, queries, opts)
	finish()
	if err != nil {
		return err
	}
	if err := writeResult(gc, report); err != nil {
		return err
	}
	return checkReport(gc, report)
}

// runValidate plans the migration, then compares the resolvers over --input-file, or the default query list when
// no file is given.
func runValidate(ctx context.Context, gc *CLIConf) error {
	bulk, err := populateBulkOptions(gc)
	if err != nil {
		return err
	}
	if err := validateDialects(gc); err != nil {
		return err
	}
	opts := migrate.ValidateOptions{BulkOptions: bulk}
	if len(gc.Args) > 0 || (gc.InputFilePath != "" && gc.InputFilePath != "-") {
		if opts.Queries, err = readQueries(gc); err != nil {
			return errors.Wrap(err, "could not read queries")
		}
	}
	text, err := gc.ConfigHandler.ReadAll()
	if err != nil {
		return errors.Wrap(err, "could not read configuration")
	}
	c, err := newComparator(gc)
	if err != nil {
		return err
	}
	n := len(opts.Queries)
	if n == 0 {
		n = len(migrate.DefaultQueries())
	}
	var finish func()
	opts.BulkOptions, finish = withProgress(gc, opts.BulkOptions, n)
	validation, err := migrate.Validate(ctx, text, gc.FromDialect, gc.ToDialect, c, opts)
	finish()
	if err != nil {
		return err
	}
	logWarnings(validation.Plan)
	if err := writeResult(gc, validation); err != nil {
		return err
	}
	return checkReport(gc, validation.Report)
}
