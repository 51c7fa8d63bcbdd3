package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"embryonic/internal/api"
	"embryonic/internal/model"
	"embryonic/internal/storage"
	embryoapi "embryonic/pkg/embryonic"
)

const defaultDBPath = "embryonic.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "generate":
		return runGenerate(ctx, args[1:])
	case "feedback":
		return runFeedback(ctx, args[1:])
	case "status":
		return runStatus(ctx, args[1:])
	case "list":
		return runList(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	case "assets":
		return runAssets(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type clientFlags struct {
	storeKind  *string
	dbPath     *string
	assetsPath *string
	seed       *int64
}

func registerClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind:  fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:     fs.String("db-path", defaultDBPath, "sqlite database path"),
		assetsPath: fs.String("assets", "", "asset library YAML path (empty uses the sample library)"),
		seed:       fs.Int64("seed", 0, "asset selection seed (0 seeds from the clock)"),
	}
}

func newClient(ctx context.Context, f clientFlags) (*embryoapi.Client, error) {
	return embryoapi.New(ctx, embryoapi.Options{
		StoreKind:  *f.storeKind,
		DBPath:     *f.dbPath,
		AssetsPath: *f.assetsPath,
		Seed:       *f.seed,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	name := fs.String("name", "", "embryo name")
	force := fs.Bool("force", false, "replace an existing embryo")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return usageError("init requires -name")
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	emb, err := client.Init(ctx, *name, *force)
	if err != nil {
		return err
	}
	fmt.Printf("initialized embryo %s at generation %d\n", emb.Name, emb.Generation)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()

	if err := store.Init(ctx); err != nil {
		return err
	}
	resetter, ok := store.(storage.Resetter)
	if !ok {
		return fmt.Errorf("store %s does not support reset", *storeKind)
	}
	if err := resetter.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	name := fs.String("name", "", "embryo name")
	subject := fs.String("subject", "", "story subject")
	duration := fs.Float64("duration", 60, "target duration in seconds")
	weightsRaw := fs.String("arc-weights", "", "arc weight override, e.g. setup=1,conflict=2,resolution=1")
	asJSON := fs.Bool("json", false, "print the full story record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return usageError("generate requires -name")
	}
	weights, err := parseArcWeights(*weightsRaw)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	story, err := client.Generate(ctx, embryoapi.GenerateRequest{
		Embryo:     *name,
		Subject:    *subject,
		Duration:   *duration,
		ArcWeights: weights,
	})
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(story)
	}
	fmt.Printf("story %s (generation %d, %s, %d cells)\n",
		story.ID, story.Generation, formatSeconds(story.TargetDuration), len(story.Cells))
	for _, arc := range model.Arcs() {
		b := story.Breakdown[arc]
		fmt.Printf("  %-10s %d cells  %s  mean intensity %.2f\n",
			arc, b.CellCount, formatSeconds(b.TotalDuration), b.MeanIntensity)
	}
	for _, cell := range story.Cells {
		fmt.Printf("  cell %s  %-10s start %6.1fs  dur %5.1fs  intensity %.2f\n",
			cell.ID, cell.Arc, cell.StartOffset, cell.Duration, cell.Parameters["intensity"])
	}
	return nil
}

func runFeedback(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("feedback", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	storyID := fs.String("story", "", "story id the feedback targets")
	scoresRaw := fs.String("scores", "", "scores, e.g. engagement=0.9,coherence=0.8")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storyID == "" {
		return usageError("feedback requires -story")
	}
	scores, err := parseScores(*scoresRaw)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	summary, err := client.Feedback(ctx, embryoapi.FeedbackRequest{StoryID: *storyID, Scores: scores})
	if err != nil {
		return err
	}
	fmt.Printf("feedback applied to %s: score %.3f, advanced to generation %d\n",
		summary.StoryID, summary.Score, summary.Generation)
	return nil
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	name := fs.String("name", "", "embryo name")
	asJSON := fs.Bool("json", false, "print status as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return usageError("status requires -name")
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	status, err := client.Status(ctx, *name)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Printf("embryo %s  generation %d  stories %s  created %s\n",
		status.Name, status.Generation,
		humanize.Comma(int64(status.StoryCount)), formatCreated(status.CreatedAtUTC))
	params := make([]string, 0, len(status.Parameters))
	for p := range status.Parameters {
		params = append(params, p)
	}
	sort.Strings(params)
	for _, p := range params {
		fmt.Printf("  %-12s %.3f  (%d observations)\n", p, status.Parameters[p], status.Observations[p])
	}
	return nil
}

func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	names, err := client.Names(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no embryos")
		return nil
	}
	for _, name := range names {
		status, err := client.Status(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s generation %-4d stories %s\n",
			name, status.Generation, humanize.Comma(int64(status.StoryCount)))
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	name := fs.String("name", "", "embryo name")
	limit := fs.Int("limit", 20, "max records to show (0 shows all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return usageError("history requires -name")
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	stories, err := client.Stories(ctx, *name, *limit)
	if err != nil {
		return err
	}
	feedback, err := client.FeedbackHistory(ctx, *name, *limit)
	if err != nil {
		return err
	}
	scoreByStory := make(map[string]float64, len(feedback))
	for _, fb := range feedback {
		if score, err := client.Engine().Score(fb.Scores); err == nil {
			scoreByStory[fb.StoryID] = score
		}
	}

	fmt.Printf("%d stories, %d feedback records\n", len(stories), len(feedback))
	for _, story := range stories {
		line := fmt.Sprintf("%s  gen %-4d %s  %s",
			story.ID, story.Generation, formatSeconds(story.TargetDuration), formatCreated(story.CreatedAtUTC))
		if score, ok := scoreByStory[story.ID]; ok {
			line += fmt.Sprintf("  score %.3f", score)
		}
		fmt.Println(line)
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	name := fs.String("name", "", "embryo name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return usageError("lineage requires -name")
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	lineage, err := client.Lineage(ctx, *name)
	if err != nil {
		return err
	}
	for _, emb := range lineage {
		fmt.Printf("generation %-4d intensity %.3f  temperature %.3f  pacing %.3f  %s\n",
			emb.Generation,
			emb.Parameters.Values["intensity"],
			emb.Parameters.Values["temperature"],
			emb.Parameters.Values["pacing"],
			formatCreated(emb.CreatedAtUTC))
	}
	return nil
}

func runAssets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assets", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	assetType := fs.String("type", "", "filter by asset type: character|location|object")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	library := client.Assets()
	stats := library.Stats()
	fmt.Printf("%d assets (%d characters, %d locations, %d objects)\n",
		stats.Total, stats.Characters, stats.Locations, stats.Objects)
	for _, a := range library.List(*assetType) {
		fmt.Printf("  %-16s %-10s %-24s %s\n", a.ID, a.Type, a.Name, strings.Join(a.Tags, ","))
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	name := fs.String("name", "", "embryo name")
	format := fs.String("format", "json", "export format: json|yaml")
	out := fs.String("out", "", "output file (empty writes to stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return usageError("export requires -name")
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	data, err := client.Export(ctx, embryoapi.ExportRequest{Embryo: *name, Format: *format})
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s (%s)\n", *name, *out, humanize.Bytes(uint64(len(data))))
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(ctx, cf)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	fmt.Printf("serving on %s\n", *addr)
	return api.NewServer(client, *addr).Serve()
}

func parseArcWeights(raw string) (map[string]float64, error) {
	if raw == "" {
		return nil, nil
	}
	weights := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid arc weight %q, want arc=value", part)
		}
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid arc weight %q: %w", part, err)
		}
		weights[key] = w
	}
	return weights, nil
}

func parseScores(raw string) (map[string]float64, error) {
	if raw == "" {
		return nil, nil
	}
	scores := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid score %q, want metric=value", part)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score %q: %w", part, err)
		}
		scores[key] = v
	}
	return scores, nil
}

func formatSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(100 * time.Millisecond).String()
}

func formatCreated(createdAtUTC string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(t)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: embryoctl <init|reset|generate|feedback|status|list|history|lineage|assets|export|serve> [flags]", msg)
}
