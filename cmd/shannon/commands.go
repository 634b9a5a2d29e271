package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/seiflotfy/shannon"
	"github.com/seiflotfy/shannon/internal/chart"
	"github.com/seiflotfy/shannon/internal/config"
	"github.com/seiflotfy/shannon/internal/corpus"
	"github.com/seiflotfy/shannon/internal/fetch"
	"github.com/seiflotfy/shannon/internal/logger"
	"github.com/seiflotfy/shannon/internal/report"
	"github.com/seiflotfy/shannon/internal/server"
	"github.com/seiflotfy/shannon/internal/textgen"
)

const usage = `usage: shannon <command> [flags]

commands:
  text   entropy of a manual text or of a JSON corpus
  url    entropy of web pages
  joint  entropies of a joint distribution
  code   Shannon-Fano code of a geometric or uniform source
  gen    random text over a language alphabet
  serve  HTTP API
`

// env carries what every command needs.
type env struct {
	cfg    config.Config
	log    logger.Logger
	stdout io.Writer
	stderr io.Writer
}

type command func(e *env, args []string) error

var commands = map[string]command{
	"text":  runText,
	"url":   runURL,
	"joint": runJoint,
	"code":  runCode,
	"gen":   runGen,
	"serve": runServe,
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	log := logger.NewWriter(stderr)
	cfg, err := config.Load()
	if err != nil {
		log.Errorf("config: %v", err)
		return 1
	}
	e := &env{cfg: cfg, log: log, stdout: stdout, stderr: stderr}
	if err := cmd(e, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		log.Errorf("%s: %v", args[0], err)
		return 1
	}
	return 0
}

func (e *env) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// openReport truncates path and returns a writer to stdout and the file.
func (e *env) openReport(path string) (io.Writer, func() error, error) {
	if path == "" {
		return e.stdout, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(e.stdout, f), f.Close, nil
}

type result struct {
	language, variant string
	analysis          report.Analysis
}

func runText(e *env, args []string) error {
	fs := e.flagSet("text")
	text := fs.String("text", "", "text to analyze")
	corpusPath := fs.String("corpus", "", "JSON corpus of texts per language and variant")
	variant := fs.String("variant", corpus.Connected, "corpus variant: variant1, variant3 or both")
	out := fs.String("out", e.cfg.Output, "report file")
	img := fs.String("img", e.cfg.ImgDir, "chart directory, empty to skip charts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var samples []corpus.Sample
	switch {
	case *text != "":
		samples = append(samples, corpus.Sample{Language: "Manual", Variant: "manual", Text: *text})
	case *corpusPath != "":
		c, err := corpus.Load(*corpusPath)
		if err != nil {
			return err
		}
		variants := []string{*variant}
		if *variant == "both" {
			variants = []string{corpus.Connected, corpus.Disconnected}
		}
		for _, v := range variants {
			if v != corpus.Connected && v != corpus.Disconnected {
				return fmt.Errorf("unknown variant %q", v)
			}
			selected, missing := c.Select(v)
			for _, lang := range missing {
				e.log.Infof("%s: no text for %s", lang, v)
			}
			samples = append(samples, selected...)
		}
		if len(samples) == 0 {
			return fmt.Errorf("%s: %w", *corpusPath, corpus.ErrNoText)
		}
	default:
		return errors.New("one of -text or -corpus is required")
	}

	w, closeReport, err := e.openReport(*out)
	if err != nil {
		return err
	}
	defer closeReport()

	var results []result
	for _, s := range samples {
		a := report.Analyze(fmt.Sprintf("%s (%s)", s.Language, s.Variant), s.Text)
		if err := report.WriteAnalysis(w, a); err != nil {
			return err
		}
		results = append(results, result{language: s.Language, variant: s.Variant, analysis: a})
		if *img != "" {
			path := filepath.Join(*img, chart.FileName(s.Language, s.Variant, "hist"))
			title := fmt.Sprintf("Symbol distribution (%s, %s)", s.Language, s.Variant)
			if err := chart.FromTally(title, a.Tally, 0).Save(path); err != nil {
				return err
			}
			e.log.Infof("chart saved to %s", path)
		}
	}
	if *img != "" {
		if err := saveComparisons(e, *img, results); err != nil {
			return err
		}
	}
	return closeReport()
}

// saveComparisons charts the information of every result, then connected
// against disconnected text for each language that has both.
func saveComparisons(e *env, dir string, results []result) error {
	all := chart.New("Information per text (bits)")
	byLang := make(map[string]map[string]float64)
	for _, r := range results {
		all.Add(r.language+" "+r.variant, r.analysis.Information)
		if byLang[r.language] == nil {
			byLang[r.language] = make(map[string]float64)
		}
		byLang[r.language][r.variant] = r.analysis.Information
	}
	path := filepath.Join(dir, "info_comparison.png")
	if err := all.Save(path); err != nil {
		return err
	}
	e.log.Infof("chart saved to %s", path)

	langs := make([]string, 0, len(byLang))
	for lang := range byLang {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		v1, ok1 := byLang[lang][corpus.Connected]
		v3, ok3 := byLang[lang][corpus.Disconnected]
		if !ok1 || !ok3 {
			continue
		}
		title := "Comparison for " + lang
		c := chart.New(title).Add(corpus.Connected, v1).Add(corpus.Disconnected, v3)
		path := filepath.Join(dir, chart.FileName("comparison", lang))
		if err := c.Save(path); err != nil {
			return err
		}
		e.log.Infof("chart saved to %s", path)
	}
	return nil
}

func runURL(e *env, args []string) error {
	fs := e.flagSet("url")
	top := fs.Int("top", 30, "symbols shown in the chart")
	timeout := fs.Duration("timeout", e.cfg.FetchTimeout, "request timeout")
	out := fs.String("out", e.cfg.Output, "report file")
	img := fs.String("img", e.cfg.ImgDir, "chart directory, empty to skip charts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one URL is required")
	}

	f, err := fetch.New(
		fetch.WithTimeout(*timeout),
		fetch.WithUserAgent(e.cfg.UserAgent),
		fetch.WithCacheSize(e.cfg.CacheSize),
	)
	if err != nil {
		return err
	}
	w, closeReport, err := e.openReport(*out)
	if err != nil {
		return err
	}
	defer closeReport()

	ctx := context.Background()
	failed := 0
	for _, raw := range fs.Args() {
		u := fetch.NormalizeURL(raw)
		text, err := f.Text(ctx, u)
		if err != nil {
			e.log.Errorf("%v", err)
			failed++
			continue
		}
		a := report.Analyze("Page: "+u, text)
		if err := report.WriteAnalysis(w, a); err != nil {
			return err
		}
		if *img != "" {
			path := filepath.Join(*img, chart.HostFileName(u))
			title := fmt.Sprintf("Top %d symbols: %s", *top, u)
			if err := chart.FromTally(title, a.Tally, *top).Save(path); err != nil {
				return err
			}
			e.log.Infof("chart saved to %s", path)
		}
	}
	if failed == fs.NArg() {
		return fmt.Errorf("no page could be analyzed")
	}
	return closeReport()
}

func runJoint(e *env, args []string) error {
	fs := e.flagSet("joint")
	rows := fs.Int("rows", 9, "rows of the random table")
	cols := fs.Int("cols", 9, "columns of the random table")
	seed := fs.Uint64("seed", 1337, "seed of the random table")
	matrix := fs.String("matrix", "", "JSON matrix of weights, replaces the random table")
	out := fs.String("out", e.cfg.Output, "report file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		j   *shannon.Joint
		err error
	)
	if *matrix != "" {
		var weights [][]float64
		if err := json.Unmarshal([]byte(*matrix), &weights); err != nil {
			return fmt.Errorf("parse -matrix: %w", err)
		}
		j, err = shannon.NewJoint(nil, nil, weights)
	} else {
		j, err = shannon.RandomJoint(*rows, *cols, *seed)
	}
	if err != nil {
		return err
	}

	w, closeReport, err := e.openReport(*out)
	if err != nil {
		return err
	}
	defer closeReport()
	if err := report.WriteJoint(w, j); err != nil {
		return err
	}
	return closeReport()
}

func runCode(e *env, args []string) error {
	fs := e.flagSet("code")
	n := fs.Int("n", 12, "alphabet size")
	uniform := fs.Bool("uniform", false, "equiprobable symbols instead of p(i) = 2^-i")
	message := fs.String("message", "", "space-separated symbols to encode, e.g. \"a1 a3 a12\"")
	text := fs.String("text", "", "code the runes of this text by their own frequencies")
	sep := fs.String("sep", " ", "codeword separator")
	save := fs.String("save", "", "write the code table to this file")
	load := fs.String("load", "", "read the code table from this file")
	out := fs.String("out", e.cfg.Output, "report file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, closeReport, err := e.openReport(*out)
	if err != nil {
		return err
	}
	defer closeReport()

	var table *shannon.CodeTable
	switch {
	case *load != "":
		f, err := os.Open(*load)
		if err != nil {
			return err
		}
		table, err = shannon.ReadCodeTable(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", *load, err)
		}
	case *text != "":
		d, err := shannon.FromText(*text)
		if err != nil {
			return err
		}
		if err := report.WriteDistribution(w, "Text source", d, nil); err != nil {
			return err
		}
		if table, err = shannon.Build(d, shannon.WithSeparator(*sep)); err != nil {
			return err
		}
	default:
		d, title, err := source(*n, *uniform)
		if err != nil {
			return err
		}
		durations := make([]float64, d.Len())
		for i := range durations {
			durations[i] = float64(i + 1)
		}
		if err := report.WriteDistribution(w, title, d, durations); err != nil {
			return err
		}
		if table, err = shannon.Build(d, shannon.WithSeparator(*sep)); err != nil {
			return err
		}
	}

	if err := report.WriteCodeTable(w, table); err != nil {
		return err
	}

	if *message != "" || *text != "" {
		if err := writeRoundTrip(w, table, *message, *text); err != nil {
			return err
		}
	}

	if *save != "" {
		f, err := os.Create(*save)
		if err != nil {
			return err
		}
		if _, err := table.WriteTo(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		e.log.Infof("code table saved to %s", *save)
	}
	return closeReport()
}

func source(n int, uniform bool) (*shannon.Distribution, string, error) {
	if uniform {
		d, err := shannon.Uniform(n, "a")
		return d, fmt.Sprintf("Equiprobable source, k = %d", n), err
	}
	d, err := shannon.Geometric(n)
	return d, fmt.Sprintf("Source with p(i) = (1/2)^i, k = %d", n), err
}

func writeRoundTrip(w io.Writer, table *shannon.CodeTable, message, text string) error {
	if message != "" {
		seq := strings.Fields(message)
		codes, err := table.Encode(seq)
		if err != nil {
			return err
		}
		encoded := strings.Join(codes, table.Separator())
		back, err := table.Decode(codes)
		if err != nil {
			return err
		}
		return report.WriteMessage(w, strings.Join(seq, " "), encoded, strings.Join(back, " "))
	}
	encoded, err := table.EncodeString(text)
	if err != nil {
		return err
	}
	decoded, err := table.DecodeString(encoded)
	if err != nil {
		return err
	}
	return report.WriteMessage(w, text, encoded, decoded)
}

func runGen(e *env, args []string) error {
	fs := e.flagSet("gen")
	lang := fs.String("lang", "uk", "alphabet: "+strings.Join(textgen.Languages(), ", "))
	length := fs.Int("length", textgen.DefaultLength, "characters to generate")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	analyze := fs.Bool("analyze", false, "append an entropy report of the generated text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text, err := textgen.Generate(*lang, *length, *seed)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(e.stdout, text); err != nil {
		return err
	}
	if *analyze {
		return report.WriteAnalysis(e.stdout, report.Analyze("Random text ("+*lang+")", text))
	}
	return nil
}

func runServe(e *env, args []string) error {
	fs := e.flagSet("serve")
	addr := fs.String("addr", e.cfg.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := fetch.New(
		fetch.WithTimeout(e.cfg.FetchTimeout),
		fetch.WithUserAgent(e.cfg.UserAgent),
		fetch.WithCacheSize(e.cfg.CacheSize),
	)
	if err != nil {
		return err
	}
	r := server.NewRouter(server.Dependencies{Handler: server.NewHandler(f, e.log)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, *addr, r, e.log)
}
