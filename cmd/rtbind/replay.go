package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-rtbind"
	"github.com/goliatone/go-rtbind/pkg/activity"
	"github.com/goliatone/go-rtbind/pkg/memdb"
	"github.com/goliatone/go-rtbind/pkg/metrics"
	"github.com/goliatone/go-rtbind/pkg/state"
)

// replayField is the host field every replay binds into.
const replayField = "bound"

// replayScript seeds the tree and lists the writes applied after binding.
type replayScript struct {
	Seed  any          `json:"seed"`
	Steps []replayStep `json:"steps"`
}

// replayStep is one write. Op is set, update, push, remove or fail. Paths are
// absolute from the root of the tree.
type replayStep struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type replayConfig struct {
	Path           string
	As             string
	OrderByChild   string
	OrderByValue   bool
	LimitToFirst   int
	LimitToLast    int
	NoReset        bool
	Expr           string
	Lang           string
	Metrics        bool
	Activity       bool
	ActivityVerbs  []string
	SequentialKeys bool
}

// replayLine is printed after binding, after every step and after teardown.
type replayLine struct {
	Step     int      `json:"step"`
	Op       string   `json:"op"`
	Path     string   `json:"path,omitempty"`
	State    any      `json:"state"`
	Rejected string   `json:"rejected,omitempty"`
	Activity []string `json:"activity,omitempty"`
}

func replayCmd() *cobra.Command {
	var cfg replayConfig

	cmd := &cobra.Command{
		Use:   "replay <script.json>",
		Short: "Bind a location and replay a write script against it",
		Long: `Replay seeds an in-memory tree, binds --path as an array or object
and applies every step of the script, printing the bound field as JSON after
each one. Use "-" to read the script from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open script: %w", err)
				}
				defer file.Close()
				in = file
			}
			return runReplay(cfg, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cfg.Path, "path", "p", "", "Location to bind")
	cmd.Flags().StringVar(&cfg.As, "as", "array", "Binding kind (array, object)")
	cmd.Flags().StringVar(&cfg.OrderByChild, "order-by-child", "", "Order children by this child path")
	cmd.Flags().BoolVar(&cfg.OrderByValue, "order-by-value", false, "Order children by their value")
	cmd.Flags().IntVar(&cfg.LimitToFirst, "limit-first", 0, "Keep only the first N children")
	cmd.Flags().IntVar(&cfg.LimitToLast, "limit-last", 0, "Keep only the last N children")
	cmd.Flags().BoolVar(&cfg.NoReset, "no-reset", false, "Keep the last value in the field on teardown")
	cmd.Flags().StringVar(&cfg.Expr, "expr", "", "Serialize snapshots with this expression")
	cmd.Flags().StringVar(&cfg.Lang, "lang", "expr", "Expression language (expr, cel, js)")
	cmd.Flags().BoolVar(&cfg.Metrics, "metrics", false, "Print Prometheus metrics after teardown")
	cmd.Flags().BoolVar(&cfg.Activity, "activity", false, "Include activity verbs in the output")
	cmd.Flags().StringSliceVar(&cfg.ActivityVerbs, "activity-verbs", nil, "Only capture these activity verbs")
	cmd.Flags().BoolVar(&cfg.SequentialKeys, "sequential-keys", false, "Generate push keys k0001, k0002, ...")

	return cmd
}

// runReplay executes a script read from in and writes one JSON line per step
// to out.
func runReplay(cfg replayConfig, in io.Reader, out io.Writer) error {
	var script replayScript
	decoder := json.NewDecoder(in)
	decoder.UseNumber()
	if err := decoder.Decode(&script); err != nil {
		return fmt.Errorf("decode script: %w", err)
	}

	var dbOpts []memdb.Option
	if cfg.SequentialKeys {
		next := 0
		dbOpts = append(dbOpts, memdb.WithKeyGenerator(func() string {
			next++
			return fmt.Sprintf("k%04d", next)
		}))
	}
	db := memdb.New(dbOpts...)
	if script.Seed != nil {
		if err := db.Root().Set(script.Seed); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	source, err := replaySource(db, cfg)
	if err != nil {
		return err
	}

	opts := []rtbind.Option{rtbind.WithLogger(glogLogger())}
	if cfg.NoReset {
		opts = append(opts, rtbind.WithReset(false))
	}
	if cfg.Expr != "" {
		serialize, err := replaySerializer(cfg.Lang, cfg.Expr)
		if err != nil {
			return err
		}
		opts = append(opts, rtbind.WithSerializer(serialize))
	}

	var registry *prometheus.Registry
	if cfg.Metrics {
		registry = prometheus.NewRegistry()
		opts = append(opts, rtbind.WithMetrics(metrics.New(metrics.WithRegistry(registry))))
	}

	capture := &activity.CaptureHook{}
	if cfg.Activity {
		hook := activity.OnlyVerbs(capture, cfg.ActivityVerbs...)
		opts = append(opts, rtbind.WithActivity(activity.Hooks{hook}, activity.BindingEventInput{Channel: "replay"}))
	}

	host := state.NewHost(nil)
	var rejected error
	reject := func(err error) { rejected = err }

	var teardown rtbind.Teardown
	switch cfg.As {
	case "array", "":
		teardown = rtbind.BindAsArray(rtbind.BindArrayParams{
			Target:     host,
			Field:      replayField,
			Collection: source,
			Reject:     reject,
			Ops:        host.Ops(),
		}, opts...)
	case "object":
		teardown = rtbind.BindAsObject(rtbind.BindObjectParams{
			Target:   host,
			Field:    replayField,
			Document: source,
			Reject:   reject,
			Ops:      host.Ops(),
		}, opts...)
	default:
		return fmt.Errorf("unknown binding kind %q", cfg.As)
	}

	encoder := json.NewEncoder(out)
	emit := func(line replayLine) error {
		line.State = host.Snapshot()[replayField]
		if rejected != nil {
			line.Rejected = rejected.Error()
			rejected = nil
		}
		if cfg.Activity {
			line.Activity = capture.Verbs()
			capture.Reset()
		}
		return encoder.Encode(line)
	}

	if err := emit(replayLine{Op: "bind", Path: source.Path()}); err != nil {
		return err
	}
	for i, step := range script.Steps {
		if err := applyStep(db, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := emit(replayLine{Step: i + 1, Op: step.Op, Path: step.Path}); err != nil {
			return err
		}
	}

	teardown()
	if err := emit(replayLine{Step: len(script.Steps) + 1, Op: "teardown"}); err != nil {
		return err
	}

	if registry != nil {
		return writeMetrics(registry, out)
	}
	return nil
}

func replaySource(db *memdb.DB, cfg replayConfig) (*memdb.Ref, error) {
	ref, err := db.Ref(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	switch {
	case cfg.OrderByChild != "":
		if ref, err = ref.OrderByChild(cfg.OrderByChild); err != nil {
			return nil, fmt.Errorf("order-by-child: %w", err)
		}
	case cfg.OrderByValue:
		ref = ref.OrderByValue()
	}
	if cfg.LimitToFirst > 0 {
		ref = ref.LimitToFirst(cfg.LimitToFirst)
	}
	if cfg.LimitToLast > 0 {
		ref = ref.LimitToLast(cfg.LimitToLast)
	}
	return ref, nil
}

func replaySerializer(lang, expression string) (rtbind.Serializer, error) {
	var (
		serialize rtbind.Serializer
		err       error
	)
	onError := rtbind.WithSerializerErrorHandler(func(snapshot rtbind.Snapshot, err error) {
		glogLogger().LogBinding(rtbind.LogEvent{Key: snapshot.Key(), Index: -1, Message: "serializer fallback", Err: err})
	})
	switch strings.ToLower(lang) {
	case "expr", "":
		serialize, err = rtbind.ExprSerializer(expression, onError)
	case "cel":
		serialize, err = rtbind.CELSerializer(expression, onError)
	case "js":
		serialize, err = rtbind.JSSerializer(expression, onError)
	default:
		return nil, fmt.Errorf("unknown expression language %q", lang)
	}
	if err != nil {
		return nil, fmt.Errorf("compile %s expression: %w", lang, err)
	}
	return serialize, nil
}

func applyStep(db *memdb.DB, step replayStep) error {
	ref, err := db.Ref(step.Path)
	if err != nil {
		return err
	}
	switch step.Op {
	case "set":
		return ref.Set(step.Value)
	case "update":
		values, ok := step.Value.(map[string]any)
		if !ok {
			return errors.New("update expects an object value")
		}
		return ref.Update(values)
	case "push":
		_, err := ref.Push(step.Value)
		return err
	case "remove":
		return ref.Remove()
	case "fail":
		message := "permission denied"
		if text, ok := step.Value.(string); ok && text != "" {
			message = text
		}
		return db.Fail(step.Path, errors.New(message))
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func writeMetrics(registry *prometheus.Registry, out io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}
	return nil
}
