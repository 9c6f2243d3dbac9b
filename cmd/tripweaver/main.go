package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/registry"
	"github.com/tripweaver/tripweaver/pkg/render"
	"github.com/tripweaver/tripweaver/pkg/services"
	"github.com/tripweaver/tripweaver/pkg/skeleton"
	"github.com/tripweaver/tripweaver/pkg/store"
	"github.com/tripweaver/tripweaver/pkg/trip"
	"github.com/tripweaver/tripweaver/pkg/valconfig"
	"github.com/tripweaver/tripweaver/pkg/validate"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tripweaver",
	Short:         "Trip data validation and persistence toolkit",
	Long:          "tripweaver — validates, persists and renders the JSON files produced by the travel planning agents.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	schemasDir string
	configPath string
)

// newStore builds the registry, config and pipeline shared by the
// commands that touch trip data.
func newStore() (*store.Store, error) {
	reg, err := registry.Load(schemasDir)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	cfg, err := valconfig.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return store.New(validate.New(reg, cfg)), nil
}

// --- validate ---

var (
	validateSeverity string
	validateJSON     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [trip_dir]",
	Short: "Run the full validation pipeline over a trip directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := newStore()
	if err != nil {
		return err
	}
	report, err := s.Pipeline.RunDir(args[0])
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}

	shown := report
	if validateSeverity != "" {
		min, err := issue.ParseSeverity(validateSeverity)
		if err != nil {
			return err
		}
		shown = report.Filter(min)
	}

	if validateJSON {
		data, err := json.MarshalIndent(shown, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		render.Report(os.Stdout, shown)
	}

	if !report.Pass() {
		os.Exit(1) // Exit 1 = HIGH issues found
	}
	return nil
}

// --- save ---

var (
	saveTrip      string
	saveAgent     string
	saveInput     string
	saveMergeDays bool
	saveNoCheck   bool
	saveAllowHigh bool
	saveNoBackup  bool
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save one agent's file through the validate-before-replace gate",
	Args:  cobra.NoArgs,
	RunE:  runSave,
}

func runSave(cmd *cobra.Command, args []string) error {
	if saveTrip == "" || saveAgent == "" {
		return fmt.Errorf("--trip and --agent are required")
	}

	var data []byte
	var err error
	if saveInput == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(saveInput)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}

	s, err := newStore()
	if err != nil {
		return err
	}
	opts := store.SaveOptions{
		Validate:  !saveNoCheck,
		AllowHigh: saveAllowHigh,
		Backup:    !saveNoBackup,
		MergeDays: saveMergeDays,
	}
	report, err := s.SaveAgent(saveTrip, saveAgent, payload, opts)
	if err != nil {
		if verr, ok := err.(*store.ValidationError); ok {
			fmt.Fprintf(os.Stderr, "Save rejected: %d HIGH issue(s)\n\n", verr.Report.Count(issue.High))
			printIssues(os.Stderr, verr.Report)
			os.Exit(1) // Exit 1 = rejected by the gate
		}
		return err
	}

	if report != nil && len(report.Issues) > 0 {
		printIssues(os.Stderr, report)
	}
	fmt.Printf("✓ saved %s/%s.json\n", saveTrip, saveAgent)
	return nil
}

// printIssues writes the report to w grouped by severity, each line
// carrying the (agent, day, label, field) tuple.
func printIssues(w io.Writer, r *issue.Report) {
	last := issue.Severity("")
	for _, i := range r.BySeverity() {
		if i.Severity != last {
			fmt.Fprintf(w, "%s:\n", i.Severity)
			last = i.Severity
		}
		fmt.Fprintf(w, "  %s\n", i)
	}
}

// --- load ---

var (
	loadTrip     string
	loadAgent    string
	loadLevel    int
	loadDay      int
	loadValidate bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load one agent's file with progressive disclosure",
	Args:  cobra.NoArgs,
	RunE:  runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadTrip == "" || loadAgent == "" {
		return fmt.Errorf("--trip and --agent are required")
	}
	s, err := newStore()
	if err != nil {
		return err
	}
	doc, err := s.LoadAgent(loadTrip, loadAgent, store.LoadOptions{
		Validate: loadValidate,
		Level:    loadLevel,
		Day:      loadDay,
	})
	if err != nil {
		if verr, ok := err.(*store.ValidationError); ok {
			fmt.Fprintf(os.Stderr, "Load blocked: %d HIGH issue(s)\n\n", verr.Report.Count(issue.High))
			printIssues(os.Stderr, verr.Report)
			os.Exit(1)
		}
		return err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// --- skeleton ---

var (
	skelTrip        string
	skelDestination string
	skelStart       string
	skelDays        int
	skelBucketList  bool
)

var skeletonCmd = &cobra.Command{
	Use:   "skeleton",
	Short: "Write empty agent files for a new trip",
	Args:  cobra.NoArgs,
	RunE:  runSkeleton,
}

func runSkeleton(cmd *cobra.Command, args []string) error {
	if skelTrip == "" {
		return fmt.Errorf("--trip is required")
	}
	opts := skeleton.Options{
		Destination: skelDestination,
		Days:        skelDays,
		BucketList:  skelBucketList,
	}
	if skelStart != "" {
		start, err := time.Parse("2006-01-02", skelStart)
		if err != nil {
			return fmt.Errorf("parse --start: %w", err)
		}
		opts.Start = start
	}
	reg, err := registry.Load(schemasDir)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}
	if err := skeleton.Generate(skelTrip, reg, opts); err != nil {
		return err
	}
	fmt.Printf("✓ skeleton for %s written to %s (%d day(s))\n", skelDestination, skelTrip, skelDays)
	return nil
}

// --- render ---

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render [trip_dir]",
	Short: "Render a validated trip as a standalone HTML itinerary",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	s, err := newStore()
	if err != nil {
		return err
	}
	t, err := trip.LoadDir(args[0])
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}
	report := s.Pipeline.Run(t)
	html, err := render.Itinerary(t, report)
	if err != nil {
		if gerr, ok := err.(*render.RenderGateError); ok {
			fmt.Fprintf(os.Stderr, "Render blocked: %d HIGH issue(s)\n\n", gerr.Report.Count(issue.High))
			printIssues(os.Stderr, gerr.Report)
			os.Exit(1)
		}
		return err
	}
	if renderOut == "" {
		_, err = os.Stdout.Write(html)
		return err
	}
	if err := store.WriteFileAtomic(renderOut, html, false); err != nil {
		return err
	}
	fmt.Printf("✓ itinerary written to %s\n", renderOut)
	return nil
}

// --- schema export ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the envelope JSON Schema to stdout",
	RunE:  runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	data, err := registry.GenerateEnvelopeSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tripweaver %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemasDir, "schemas", "schemas", "Directory holding the agent schemas")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/validation.json", "Path to the validation config")

	validateCmd.Flags().StringVar(&validateSeverity, "severity", "", "Minimum severity to show: HIGH, MEDIUM, LOW, or INFO")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output the report as structured JSON")

	saveCmd.Flags().StringVar(&saveTrip, "trip", "", "Trip directory")
	saveCmd.Flags().StringVar(&saveAgent, "agent", "", "Agent name, e.g. attractions")
	saveCmd.Flags().StringVar(&saveInput, "input", "", "Payload file (default: stdin)")
	saveCmd.Flags().BoolVar(&saveMergeDays, "merge-days", false, "Merge incoming days into the existing file by day number")
	saveCmd.Flags().BoolVar(&saveNoCheck, "no-validate", false, "Skip the validation gate")
	saveCmd.Flags().BoolVar(&saveAllowHigh, "allow-high-severity", false, "Write even when HIGH issues are found")
	saveCmd.Flags().BoolVar(&saveNoBackup, "no-backup", false, "Do not rotate the previous file to .bak")

	loadCmd.Flags().StringVar(&loadTrip, "trip", "", "Trip directory")
	loadCmd.Flags().StringVar(&loadAgent, "agent", "", "Agent name")
	loadCmd.Flags().IntVar(&loadLevel, "level", 3, "Detail level: 1 summary, 2 headers, 3 full")
	loadCmd.Flags().IntVar(&loadDay, "day", 0, "Restrict the result to one day number")
	loadCmd.Flags().BoolVar(&loadValidate, "validate", false, "Fail when the agent carries HIGH issues")

	skeletonCmd.Flags().StringVar(&skelTrip, "trip", "", "Trip directory to create")
	skeletonCmd.Flags().StringVar(&skelDestination, "destination", "", "Destination city")
	skeletonCmd.Flags().StringVar(&skelStart, "start", "", "Start date (YYYY-MM-DD)")
	skeletonCmd.Flags().IntVar(&skelDays, "days", 0, "Number of days")
	skeletonCmd.Flags().BoolVar(&skelBucketList, "bucket-list", false, "Dateless wishlist trip")

	renderCmd.Flags().StringVar(&renderOut, "out", "", "Output file (default: stdout)")

	schemaCmd.AddCommand(schemaExportCmd)

	toolsCmd.PersistentFlags().StringVar(&toolsWorkspace, "workspace", ".", "Workspace root holding .tripweaver/config.yaml")
	toolsCallCmd.Flags().StringArrayVar(&toolsArgs, "arg", nil, "Tool argument (key=value), repeatable")
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(skeletonCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

// --- tools ---

var (
	toolsWorkspace string
	toolsArgs      []string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "External service servers declared in the workspace config",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured servers",
	RunE:  runToolsList,
}

func runToolsList(cmd *cobra.Command, args []string) error {
	cfg, err := services.LoadConfig(toolsWorkspace)
	if err != nil {
		return err
	}
	if len(cfg.Servers) == 0 {
		fmt.Println("no servers configured")
		return nil
	}
	names := make([]string, 0, len(cfg.Servers))
	for n := range cfg.Servers {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		sc := cfg.Servers[n]
		fmt.Printf("%-16s %s %s\n", n, sc.Command, strings.Join(sc.Args, " "))
	}
	return nil
}

var toolsCallCmd = &cobra.Command{
	Use:   "call [server] [tool]",
	Short: "Spawn a server and invoke one of its tools",
	Args:  cobra.ExactArgs(2),
	RunE:  runToolsCall,
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	cfg, err := services.LoadConfig(toolsWorkspace)
	if err != nil {
		return err
	}
	callArgs := make(map[string]any, len(toolsArgs))
	for _, a := range toolsArgs {
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid --arg %q: expected key=value", a)
		}
		callArgs[parts[0]] = parts[1]
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	mgr := services.NewManager(cfg, log)
	defer mgr.Close()

	ctx := context.Background()
	client, err := mgr.Get(ctx, args[0])
	if err != nil {
		return err
	}
	result, err := client.CallTool(ctx, args[1], callArgs)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}
