package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sopflow/internal/flowstore"
	"sopflow/internal/gateway/app"
	"sopflow/internal/gateway/config"
	"sopflow/internal/llm"
	"sopflow/internal/render"
	"sopflow/internal/settings"
	"sopflow/internal/types"
	"sopflow/internal/util/jsonutil"
)

type analyzeOptions struct {
	sample   bool
	offline  bool
	asJSON   bool
	docOut   string
	localDoc bool
	timeout  time.Duration
	retries  int
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Structure an SOP document into a process flow",
		Long: `Analyze reads an SOP from a file (or stdin when the file is "-") and prints
the generated process flow as a tree, or as JSON with --json.

Text and Markdown files are sent as text. Other files, such as PDFs, are
attached as binary and need a provider that accepts files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd.InOrStdin(), args, opts.sample)
			if err != nil {
				return err
			}
			mgr, err := loadSettings(root)
			if err != nil {
				return err
			}
			router := app.NewRouter(config.LLMConfig{
				Timeout: opts.timeout,
				Retries: opts.retries,
				Offline: opts.offline,
			}, nil)
			defer router.Close()
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), flowstore.New(router, mgr), src, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.sample, "sample", false, "analyze the bundled onboarding SOP")
	f.BoolVar(&opts.offline, "offline", false, "answer with the local outline parser instead of a model")
	f.BoolVar(&opts.asJSON, "json", false, "print the flow as JSON")
	f.StringVar(&opts.docOut, "doc-out", "", "also render the final document to this file")
	f.BoolVar(&opts.localDoc, "local-doc", false, "render the document locally instead of asking the model")
	f.DurationVar(&opts.timeout, "timeout", llm.DefaultTimeout, "bound on each model call")
	f.IntVar(&opts.retries, "retries", 0, "retries for transient provider failures")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, st *flowstore.Store, src llm.Source, opts *analyzeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := st.Analyze(ctx, src); err != nil {
		fmt.Fprintln(out, render.Transcript(st.Snapshot().Transcript))
		return err
	}
	snap := st.Snapshot()
	if opts.asJSON {
		fmt.Fprintln(out, jsonutil.IndentString(snap.Flow))
	} else {
		fmt.Fprintln(out, render.Tree(snap.Flow))
	}

	if opts.docOut == "" {
		return nil
	}
	doc := render.Markdown(snap.Flow)
	if !opts.localDoc {
		if err := st.RenderDocument(ctx); err != nil {
			return err
		}
		doc = st.Snapshot().Document
	}
	if dir := filepath.Dir(opts.docOut); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(opts.docOut, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if !opts.asJSON {
		fmt.Fprintf(out, "Document written to %s\n", opts.docOut)
	}
	return nil
}

// readSource turns the command input into a document source. Text content
// travels as text; anything else is attached with its sniffed MIME type.
func readSource(stdin io.Reader, args []string, sample bool) (llm.Source, error) {
	if sample {
		return llm.Source{Text: types.SampleSOP}, nil
	}
	if len(args) == 0 {
		return llm.Source{}, fmt.Errorf("a file argument or --sample is required")
	}
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return llm.Source{}, err
	}
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "text/") {
		return llm.Source{Text: string(data)}, nil
	}
	return llm.Source{File: &llm.Attachment{MIMEType: mime, Data: data}}, nil
}

func loadSettings(root *rootOptions) (*settings.Manager, error) {
	path := root.settingsPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SOPFLOW_SETTINGS"))
	}
	if path == "" {
		path = "sopflow.yaml"
	}
	return settings.NewManager(path)
}
