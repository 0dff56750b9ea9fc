package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/conf"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/invoker"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/runner"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/store"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/utils/errutil"
)

var (
	modeFlag = conf.NewStringFlag(
		"mode", "Benchmark mode: test (2 cold + 2 warm), balanced (10 + 20) or production (125 + 500)", "test")
	coldStartsFlag = conf.NewIntFlag(
		"cold_starts", "Override the number of cold starts per configuration (0 keeps the mode default)", 0)
	warmStartsFlag = conf.NewIntFlag(
		"warm_starts", "Override the number of warm starts per configuration (0 keeps the mode default)", 0)
	memoryFlag = conf.NewIntListFlag(
		"mem", "Restrict the sweep to specific memory sizes in MB. Can be repeated or comma separated (--mem=1769,2048)")
	filterFlag = conf.NewStringFlag(
		"filter", "Only benchmark functions whose name contains the given substring (e.g. cpu-intensive, python3.13)", "")
	workersFlag = conf.NewIntFlag(
		"workers", "Number of functions benchmarked in parallel", 12)
	runIDFlag = conf.NewStringFlag(
		"id", "Test run ID. Generated when empty; provide one to group reruns", "")
	notesFlag = conf.NewStringFlag(
		"notes", "Optional notes stored with the test run record", "")
	yesFlag = conf.NewBoolFlag(
		"yes", "Auto-confirm prompts for long-running modes", false)
)

func main() {
	conf.SetAppName("lambda-bench")
	conf.SetHelp(`Lambda cold and warm start benchmark orchestrator.
It discovers the deployed benchmark functions from their CloudFormation stack,
sweeps every function through its per-workload memory sizes with forced cold
starts, and stores raw samples plus pre-calculated statistics in DynamoDB.`)

	errutil.Check(conf.ParseFlags())
	logrus.SetLevel(conf.LogLevel())

	config, err := buildConfig()
	errutil.Check(err)

	if !confirmMode() {
		logrus.Info("Aborted.")
		return
	}

	// SIGINT stops scheduling further functions; sweeps already in
	// flight finish and the run record is marked accordingly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsConfig, err := invoker.LoadAWSConfig(ctx)
	errutil.CheckWithContext(err, "Cannot resolve AWS configuration")

	subjects, err := invoker.Discover(ctx,
		cloudformation.NewFromConfig(awsConfig),
		lambda.NewFromConfig(awsConfig),
		invoker.StackName.Value(),
		config.NameFilter)
	errutil.CheckWithContext(err, "Cannot discover benchmark functions")
	logrus.Infof("Discovered %d benchmark functions in stack %q", len(subjects), invoker.StackName.Value())

	clients := func() (runner.Clients, error) {
		return runner.Clients{
			Invoker: invoker.New(lambda.NewFromConfig(awsConfig)),
			Store:   store.NewDynamoDB(dynamodb.NewFromConfig(awsConfig), store.ResultsTable.Value()),
		}, nil
	}

	report, err := runner.New(config, subjects, clients, awsConfig.Region).Run(ctx)
	errutil.Check(err)

	logrus.Infof("Results stored in DynamoDB table %q under test run %s", store.ResultsTable.Value(), report.RunID)
	if report.Aborted || report.Failed > 0 {
		os.Exit(1)
	}
}

func buildConfig() (benchmark.Config, error) {
	var config benchmark.Config
	switch modeFlag.Value() {
	case "test":
		logrus.Info("Running in TEST mode with minimal iteration counts")
		config = benchmark.TestConfig
	case "balanced":
		logrus.Info("Running in BALANCED mode (publication-quality statistics)")
		config = benchmark.BalancedConfig
	case "production":
		logrus.Warn("Running in PRODUCTION mode with maximum iteration counts; this takes many hours")
		config = benchmark.ProductionConfig
	default:
		return benchmark.Config{}, errors.Errorf("unknown mode %q, expected test, balanced or production", modeFlag.Value())
	}

	if coldStartsFlag.Value() > 0 {
		config.ColdStartsPerConfig = coldStartsFlag.Value()
	}
	if warmStartsFlag.Value() > 0 {
		config.WarmStartsPerConfig = warmStartsFlag.Value()
	}
	if workersFlag.Value() > 0 {
		config.MaxWorkers = workersFlag.Value()
	}
	if sizes := memoryFlag.Value(); len(sizes) > 0 {
		logrus.Infof("Restricting to memory sizes: %v", sizes)
		config.MemorySizeFilter = sizes
	}
	config.RunID = runIDFlag.Value()
	config.NameFilter = filterFlag.Value()
	config.Notes = notesFlag.Value()

	return config, nil
}

// confirmMode asks for confirmation before the long-running modes
// unless the yes flag was given.
func confirmMode() bool {
	if modeFlag.Value() == "test" || yesFlag.Value() {
		return true
	}

	fmt.Print("Continue? (yes/no): ")
	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(response)) == "yes"
}
