// Package main implements the fhircrawl CLI tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	fhircrawler "github.com/gofhir/crawler"
	"github.com/gofhir/crawler/loader"
	"github.com/gofhir/crawler/schema"
	"github.com/gofhir/crawler/worker"
)

const (
	usage = `fhircrawl - schema-directed FHIR resource crawler

Usage:
  fhircrawl -schemas <path> [options] <file>...
  fhircrawl -schemas <path> [options] -   (read from stdin)

Examples:
  fhircrawl -schemas ./profiles patient.json
  fhircrawl -schemas profiles.json -mode check *.json
  fhircrawl -schemas ./profiles -mode refs -output json bundle.json
  cat patient.json | fhircrawl -schemas ./profiles -

Modes:
  walk    print every property visited with its value count (default)
  check   report cardinality violations
  refs    list every Reference value with its path

Options:
`
)

// Mode selects what the crawl produces.
type Mode string

// Crawl modes.
const (
	ModeWalk  Mode = "walk"
	ModeCheck Mode = "check"
	ModeRefs  Mode = "refs"
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Config holds CLI configuration.
type Config struct {
	SchemaPaths []string
	FHIRVersion fhircrawler.FHIRVersion
	Mode        Mode
	Output      OutputFormat
	MaxDepth    int
	Workers     int
	Quiet       bool
	Verbose     bool
	ShowVersion bool
	Help        bool
	Files       []string
}

// FileOutput is the JSON output for one crawled file.
type FileOutput struct {
	Resource   string        `json:"resource"`
	OK         bool          `json:"ok"`
	Errors     int           `json:"errors,omitempty"`
	Properties []PropertyOut `json:"properties,omitempty"`
	Issues     []IssueOut    `json:"issues,omitempty"`
	References []RefOut      `json:"references,omitempty"`
	Duration   string        `json:"duration"`
}

// PropertyOut is one visited property in walk mode.
type PropertyOut struct {
	Path   string `json:"path"`
	Type   string `json:"type,omitempty"`
	Values int    `json:"values"`
}

// IssueOut is one finding in check mode.
type IssueOut struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics"`
	Expression  []string `json:"expression,omitempty"`
}

// RefOut is one collected reference in refs mode.
type RefOut struct {
	Path      string `json:"path"`
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("fhircrawl v%s\n", fhircrawler.Version)
		os.Exit(0)
	}
	if config.Help || len(config.Files) == 0 || len(config.SchemaPaths) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(run(config))
}

func parseFlags() *Config {
	config := &Config{
		Mode:   ModeWalk,
		Output: OutputText,
	}

	var schemas, mode, output, fhirVersion string

	flag.StringVar(&schemas, "schemas", "", "StructureDefinition file(s) or directory(ies), comma-separated (required)")
	flag.StringVar(&fhirVersion, "fhir", "R4", "FHIR version of the loaded definitions (R4, R4B)")
	flag.StringVar(&mode, "mode", "walk", "Crawl mode: walk, check, refs")
	flag.StringVar(&output, "output", "text", "Output format: text, json")
	flag.IntVar(&config.MaxDepth, "max-depth", fhircrawler.DefaultMaxDepth, "Maximum traversal depth")
	flag.IntVar(&config.Workers, "workers", 0, "Parallel workers in check mode (0 = NumCPU)")
	flag.BoolVar(&config.Quiet, "quiet", false, "Only show errors")
	flag.BoolVar(&config.Verbose, "verbose", false, "Show load diagnostics")
	flag.BoolVar(&config.ShowVersion, "v", false, "Show version")
	flag.BoolVar(&config.Help, "help", false, "Show help")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	flag.Parse()

	if schemas != "" {
		config.SchemaPaths = strings.Split(schemas, ",")
	}

	config.FHIRVersion = fhircrawler.FHIRVersion(strings.ToUpper(fhirVersion))

	switch strings.ToLower(mode) {
	case "check":
		config.Mode = ModeCheck
	case "refs":
		config.Mode = ModeRefs
	default:
		config.Mode = ModeWalk
	}

	if strings.ToLower(output) == "json" {
		config.Output = OutputJSON
	}

	config.Files = flag.Args()
	return config
}

func newLogger(config *Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if config.Verbose {
		level = zerolog.DebugLevel
	}
	if config.Quiet {
		level = zerolog.ErrorLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func run(config *Config) int {
	log := newLogger(config)

	if !config.FHIRVersion.IsValid() {
		log.Error().Str("fhir", config.FHIRVersion.String()).Msg("unsupported FHIR version")
		return 1
	}

	ld := loader.New(loader.WithLogger(log))
	for _, path := range config.SchemaPaths {
		path = strings.TrimSpace(path)
		info, err := os.Stat(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("cannot read schema path")
			return 1
		}

		var count int
		if info.IsDir() {
			count, err = ld.LoadAllFromDirectory(path)
		} else {
			count, err = ld.LoadFromFile(path)
		}
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("schema load failed")
			return 1
		}
		log.Debug().Int("definitions", count).Str("path", path).Msg("schemas loaded")
	}
	if ld.Count() == 0 {
		log.Error().Msg("no structure definitions loaded")
		return 1
	}

	files, ok := expandFiles(config.Files, log)
	if !ok {
		return 1
	}

	if config.Mode == ModeCheck && len(files) > 1 {
		return runBatchCheck(config, ld, files, log)
	}

	hasErrors := false
	outputs := make([]FileOutput, 0, len(files))
	for _, file := range files {
		output, fileHasErrors := crawlFile(config, ld, file, log)
		outputs = append(outputs, output)
		if fileHasErrors {
			hasErrors = true
		}
	}

	if config.Output == OutputJSON {
		printJSON(outputs)
	}

	if hasErrors {
		return 1
	}
	return 0
}

// expandFiles resolves glob patterns and keeps "-" for stdin.
func expandFiles(args []string, log zerolog.Logger) ([]string, bool) {
	var files []string
	for _, arg := range args {
		if arg == "-" {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(arg)
		if err != nil {
			log.Error().Err(err).Str("pattern", arg).Msg("bad file pattern")
			return nil, false
		}
		if len(matches) == 0 {
			log.Error().Str("pattern", arg).Msg("no files match pattern")
			return nil, false
		}
		files = append(files, matches...)
	}
	return files, true
}

func readInput(file string) (string, []byte, error) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		return "stdin", data, err
	}
	data, err := os.ReadFile(file)
	return file, data, err
}

func crawlFile(config *Config, ld *loader.Loader, file string, log zerolog.Logger) (FileOutput, bool) {
	name, data, err := readInput(file)
	if err != nil {
		log.Error().Err(err).Str("file", file).Msg("read failed")
		return FileOutput{Resource: name, OK: false, Errors: 1}, true
	}

	var resource map[string]any
	if err := json.Unmarshal(data, &resource); err != nil {
		log.Error().Err(err).Str("file", name).Msg("parse failed")
		return FileOutput{Resource: name, OK: false, Errors: 1}, true
	}

	ctx := context.Background()
	start := time.Now()

	var output FileOutput
	switch config.Mode {
	case ModeCheck:
		output, err = checkResource(ctx, config, ld, resource)
	case ModeRefs:
		output, err = collectRefs(ctx, config, ld, resource)
	default:
		output, err = walkResource(ctx, config, ld, resource)
	}
	output.Resource = name
	output.Duration = time.Since(start).Round(time.Microsecond).String()

	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("crawl failed")
		return FileOutput{Resource: name, OK: false, Errors: 1, Duration: output.Duration}, true
	}

	if config.Output == OutputText {
		printText(config, output)
	}
	return output, !output.OK
}

func walkResource(ctx context.Context, config *Config, p schema.Provider, resource map[string]any) (FileOutput, error) {
	output := FileOutput{OK: true}

	visitor := &fhircrawler.Visitor{
		VisitProperty: func(parent schema.TypedValue, key, path string, values []schema.TypedValue, sch *schema.TypeSchema) error {
			prop := PropertyOut{Path: path, Values: len(values)}
			if len(values) > 0 {
				prop.Type = values[0].Type
			}
			output.Properties = append(output.Properties, prop)
			return nil
		},
	}

	err := fhircrawler.Crawl(ctx, resource, p, visitor, fhircrawler.WithMaxDepth(config.MaxDepth))
	return output, err
}

func checkResource(ctx context.Context, config *Config, p schema.Provider, resource map[string]any) (FileOutput, error) {
	report, err := fhircrawler.CheckCardinality(ctx, resource, p, fhircrawler.WithMaxDepth(config.MaxDepth))
	if err != nil {
		return FileOutput{}, err
	}

	output := FileOutput{OK: report.OK, Errors: report.ErrorCount()}
	for _, issue := range report.Issues {
		output.Issues = append(output.Issues, IssueOut{
			Severity:    string(issue.Severity),
			Code:        string(issue.Code),
			Diagnostics: issue.Diagnostics,
			Expression:  issue.Expression,
		})
	}
	return output, nil
}

func collectRefs(ctx context.Context, config *Config, p schema.Provider, resource map[string]any) (FileOutput, error) {
	refs, err := fhircrawler.CollectReferences(ctx, resource, p, fhircrawler.WithMaxDepth(config.MaxDepth))
	if err != nil {
		return FileOutput{}, err
	}

	output := FileOutput{OK: true}
	for _, ref := range refs {
		out := RefOut{Path: ref.Path}
		if obj := ref.Value.AsObject(); obj != nil {
			if s, ok := obj["reference"].(string); ok {
				out.Reference = s
			}
			if s, ok := obj["display"].(string); ok {
				out.Display = s
			}
		}
		output.References = append(output.References, out)
	}
	return output, nil
}

// runBatchCheck checks many files in parallel through the worker pool.
func runBatchCheck(config *Config, ld *loader.Loader, files []string, log zerolog.Logger) int {
	names := make([]string, 0, len(files))
	resources := make([][]byte, 0, len(files))
	for _, file := range files {
		name, data, err := readInput(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("read failed")
			return 1
		}
		names = append(names, name)
		resources = append(resources, data)
	}

	bc := worker.NewBatchCrawler(worker.CardinalityFunc(ld), config.Workers)
	batch := bc.CrawlBatch(context.Background(), resources)

	hasErrors := false
	outputs := make([]FileOutput, 0, len(batch.Results))
	for i, result := range batch.Results {
		output := FileOutput{Resource: names[i], OK: true}
		if result == nil {
			continue
		}
		output.Duration = time.Duration(result.Duration).Round(time.Microsecond).String()

		switch {
		case result.Error != nil:
			output.OK = false
			output.Errors = 1
			log.Error().Err(result.Error).Str("file", names[i]).Msg("crawl failed")
		case result.Report != nil:
			output.OK = result.Report.OK
			output.Errors = result.Report.ErrorCount()
			for _, issue := range result.Report.Issues {
				output.Issues = append(output.Issues, IssueOut{
					Severity:    string(issue.Severity),
					Code:        string(issue.Code),
					Diagnostics: issue.Diagnostics,
					Expression:  issue.Expression,
				})
			}
		}
		if !output.OK {
			hasErrors = true
		}

		outputs = append(outputs, output)
		if config.Output == OutputText {
			printText(config, output)
		}
	}

	if config.Output == OutputJSON {
		printJSON(outputs)
	}

	if hasErrors {
		return 1
	}
	return 0
}

func printJSON(outputs []FileOutput) {
	data, _ := json.MarshalIndent(outputs, "", "  ")
	fmt.Println(string(data))
}

func printText(config *Config, output FileOutput) {
	status := "OK"
	if !output.OK {
		status = "FAILED"
	}

	fmt.Printf("== %s ==\n", output.Resource)
	fmt.Printf("Status: %s (%s)\n", status, output.Duration)

	for _, prop := range output.Properties {
		if config.Quiet {
			break
		}
		if prop.Type != "" {
			fmt.Printf("  %-50s %-20s %d\n", prop.Path, prop.Type, prop.Values)
		} else {
			fmt.Printf("  %-50s %-20s %d\n", prop.Path, "-", prop.Values)
		}
	}

	for _, issue := range output.Issues {
		location := ""
		if len(issue.Expression) > 0 {
			location = fmt.Sprintf(" @ %s", strings.Join(issue.Expression, ", "))
		}
		fmt.Printf("  %s [%s] %s%s\n", strings.ToUpper(issue.Severity), issue.Code, issue.Diagnostics, location)
	}

	for _, ref := range output.References {
		fmt.Printf("  %-50s -> %s %s\n", ref.Path, ref.Reference, ref.Display)
	}

	fmt.Println()
}
