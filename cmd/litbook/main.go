// Command litbook builds verse stores from tagged corpora and serves
// passages by reference over HTTP.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/FocuswithJustin/litbook/core/books"
	"github.com/FocuswithJustin/litbook/core/breakout"
	"github.com/FocuswithJustin/litbook/core/ref"
	"github.com/FocuswithJustin/litbook/core/sqlite"
	"github.com/FocuswithJustin/litbook/core/verse"
	"github.com/FocuswithJustin/litbook/internal/archive"
	"github.com/FocuswithJustin/litbook/internal/logging"
	"github.com/FocuswithJustin/litbook/internal/server"
)

const version = "1.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Dir             string `name:"dir" short:"d" help:"Verse store directory" default:"./store" env:"LITBOOK_DIR" type:"path"`
	Books           string `name:"books" short:"b" help:"Book list file (abbreviation, full name per line)" default:"./booklist.txt" env:"LITBOOK_BOOKS" type:"path"`
	MetaphoneLength int    `name:"metaphone-length" help:"Maximum metaphone code length" default:"32"`
	LogLevel        string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info" env:"LITBOOK_LOG_LEVEL"`
	LogFormat       string `name:"log-format" help:"Log format" enum:"auto,text,json" default:"auto" env:"LITBOOK_LOG_FORMAT"`
}

// Env carries the process streams into commands.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
}

// CLI defines the command-line interface for litbook.
var CLI struct {
	Globals

	Breakout BreakoutCmd `cmd:"" help:"Build a verse store from a tagged corpus"`
	Lookup   LookupCmd   `cmd:"" help:"Resolve references read from stdin and print the passages"`
	Serve    ServeCmd    `cmd:"" help:"Serve passages over HTTP"`
	Verify   VerifyCmd   `cmd:"" help:"Check store files against the manifest"`
	Export   ExportCmd   `cmd:"" help:"Export the store to a SQLite database"`
	Books    BooksCmd    `cmd:"" help:"List the book registry with phonetic codes"`
	Pack     PackCmd     `cmd:"" help:"Pack the store into a .tar.gz or .tar.xz archive"`
	Unpack   UnpackCmd   `cmd:"" help:"Unpack an archived store into the store directory"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

func (g *Globals) registry() (*books.Registry, error) {
	return books.LoadFile(g.Books, books.Config{MetaphoneLength: g.MetaphoneLength})
}

func (g *Globals) store() *verse.Store {
	return verse.NewStore(g.Dir)
}

// BreakoutCmd builds a verse store.
type BreakoutCmd struct {
	Input   string `arg:"" optional:"" help:"Corpus file (plain, .gz or .xz); - for stdin" default:"-"`
	Summary bool   `short:"s" help:"Print chapter and verse counts per book"`
}

func (c *BreakoutCmd) Run(g *Globals, env *Env) error {
	src, err := archive.OpenSource(c.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	name := c.Input
	if name == "-" || name == "" {
		name = "stdin"
	}
	bible, err := breakout.Build(src, name)
	if err != nil {
		return err
	}
	logging.Info("corpus_parsed", "source", name, "books", len(bible.Books))

	if c.Summary {
		if err := breakout.Summary(env.Stdout, bible); err != nil {
			return err
		}
	}

	m, err := breakout.Write(context.Background(), bible, g.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "wrote %d books, %d verses to %s\n", len(m.Books), m.Verses(), server.AbsPath(g.Dir))
	return nil
}

// LookupCmd reads one reference per line and prints the passage.
type LookupCmd struct {
	Dump    bool `help:"Dump the registry before reading references"`
	Resolve bool `help:"Print only the canonical reference instead of the passage"`
}

func (c *LookupCmd) Run(g *Globals, env *Env) error {
	reg, err := g.registry()
	if err != nil {
		return err
	}
	if c.Dump {
		dumpRegistry(env.Stdout, reg, books.TierAbbrev)
	}

	parser := ref.NewParser(reg)
	store := g.store()
	ctx := context.Background()

	sc := bufio.NewScanner(env.Stdin)
	for sc.Scan() {
		raw := sc.Text()
		res, err := parser.Parse(raw)
		if err != nil {
			fmt.Fprintln(env.Stdout, "error in request")
			continue
		}
		logging.LookupEvent(ctx, raw, res.Canonical(), res.Tier.String(), res.Mismatch)

		if c.Resolve {
			if res.Mismatch {
				fmt.Fprintf(env.Stdout, "%s->", raw)
			}
			fmt.Fprintf(env.Stdout, "%s found\n", res.Canonical())
			continue
		}

		p, err := store.Passage(ctx, res.Range)
		if err != nil {
			return err
		}
		if p.Corrupt() {
			logging.StoreError(ctx, g.Dir, "show_chapter", p.Stopped, "reference", res.Canonical())
		}
		printPassage(env.Stdout, p)
	}
	return sc.Err()
}

func printPassage(w io.Writer, p *verse.Passage) {
	if p.Empty() {
		fmt.Fprintln(w, "error")
		return
	}
	fmt.Fprintf(w, "\n%s\n", p.Range.Book)
	for _, ch := range p.Chapters {
		fmt.Fprintf(w, "Chapter %d\n\n", ch.Number)
		if ch.Elided() {
			fmt.Fprint(w, "\t.\n\t.\n\t.\n")
		}
		for _, v := range ch.Verses {
			fmt.Fprintf(w, "%d. %s\n\n", v.Number, v.Text)
		}
	}
}

func dumpRegistry(w io.Writer, reg *books.Registry, view books.Tier) {
	fmt.Fprintln(w, "Dump list")
	for _, e := range reg.View(view) {
		fmt.Fprintf(w, "\t%s\t, %s(%s)[%s]\n", e.Abbrev, e.FullName, e.Soundex, e.Metaphone)
	}
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Addr  string   `help:"Listen address" default:":8080" env:"LITBOOK_ADDR"`
	TLD   string   `name:"tld" help:"Path the handler is mounted under, e.g. /bible" env:"LITBOOK_TLD"`
	Index string   `help:"Where requests without a reference are redirected" env:"LITBOOK_INDEX"`
	Title string   `help:"HTML page title" env:"LITBOOK_TITLE"`
	CORS  []string `name:"cors-origin" help:"Allowed CORS origins"`
	Cache string   `name:"cache-size" help:"Memory for rendered pages, e.g. 8MB; 0 disables" default:"8MB" env:"LITBOOK_CACHE_SIZE"`

	RateLimit  int  `name:"rate-limit" help:"Requests per minute per client; 0 disables" default:"0" env:"LITBOOK_RATE_LIMIT"`
	Burst      int  `help:"Requests a client may make at once" default:"20"`
	TrustProxy bool `name:"trust-proxy" help:"Take client addresses from X-Forwarded-For"`
}

func (c *ServeCmd) Run(g *Globals) error {
	reg, err := g.registry()
	if err != nil {
		return err
	}
	store := g.store()
	if m, err := verse.LoadManifest(store.Root); err != nil {
		logging.Warn("store has no readable manifest", "dir", server.AbsPath(store.Root), "error", err.Error())
	} else {
		logging.Info("store loaded", "books", len(m.Books), "verses", m.Verses())
	}

	cacheBytes, err := humanize.ParseBytes(c.Cache)
	if err != nil {
		return fmt.Errorf("invalid --cache-size %q: %w", c.Cache, err)
	}

	srv, err := server.New(server.Config{
		Registry:   reg,
		Store:      store,
		TLD:        c.TLD,
		IndexURL:   c.Index,
		Title:      c.Title,
		CacheBytes: int64(cacheBytes),
		RateLimit: server.RateLimitConfig{
			RequestsPerMinute: c.RateLimit,
			Burst:             c.Burst,
			TrustProxy:        c.TrustProxy,
		},
	}, server.CORSConfig{AllowedOrigins: c.CORS})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, c.Addr)
}

// VerifyCmd checks store integrity.
type VerifyCmd struct {
	Workers int `help:"Chapters checked in parallel; 0 means one per CPU"`
}

func (c *VerifyCmd) Run(g *Globals, env *Env) error {
	store := g.store()
	store.Workers = c.Workers
	rep, err := store.Verify(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "%d books, %d chapters, %d verses\n", rep.Books, rep.Chapters, rep.Verses)
	for _, p := range rep.Problems {
		fmt.Fprintf(env.Stdout, "  %v\n", p)
	}
	if !rep.OK() {
		return fmt.Errorf("verification failed: %d problems", len(rep.Problems))
	}
	fmt.Fprintln(env.Stdout, "OK")
	return nil
}

// ExportCmd writes the store into a SQLite database.
type ExportCmd struct {
	Out string `arg:"" help:"SQLite database path" type:"path"`
}

func (c *ExportCmd) Run(g *Globals, env *Env) error {
	n, err := g.store().Export(context.Background(), c.Out)
	if err != nil {
		return err
	}
	db, err := sqlite.OpenReadOnly(c.Out)
	if err != nil {
		return err
	}
	defer db.Close()
	info := sqlite.GetInfo(db)
	fmt.Fprintf(env.Stdout, "exported %d verses to %s (sqlite %s via %s)\n", n, c.Out, info.Version, info.Package)
	return nil
}

// BooksCmd lists the registry.
type BooksCmd struct {
	View string `help:"Sort order" enum:"fullname,abbrev,soundex,metaphone" default:"abbrev"`
}

func (c *BooksCmd) Run(g *Globals, env *Env) error {
	reg, err := g.registry()
	if err != nil {
		return err
	}
	dumpRegistry(env.Stdout, reg, parseTier(c.View))
	return nil
}

func parseTier(s string) books.Tier {
	for _, t := range []books.Tier{books.TierFullName, books.TierAbbrev, books.TierSoundex, books.TierMetaphone} {
		if t.String() == s {
			return t
		}
	}
	return books.TierAbbrev
}

// PackCmd archives the store.
type PackCmd struct {
	Out string `arg:"" help:"Archive path ending in .tar.gz, .tgz, .tar.xz or .txz" type:"path"`
}

func (c *PackCmd) Run(g *Globals, env *Env) error {
	n, err := archive.Pack(context.Background(), g.Dir, c.Out)
	if err != nil {
		return err
	}
	info, err := os.Stat(c.Out)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "packed %d files into %s (%s)\n", n, filepath.Base(c.Out), humanize.Bytes(uint64(info.Size())))
	return nil
}

// UnpackCmd restores an archived store.
type UnpackCmd struct {
	Archive string `arg:"" help:"Archive created by pack" type:"existingfile"`
	Verify  bool   `help:"Verify the store after unpacking" default:"true" negatable:""`
}

func (c *UnpackCmd) Run(g *Globals, env *Env) error {
	n, err := archive.Unpack(context.Background(), c.Archive, g.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "unpacked %d files into %s\n", n, server.AbsPath(g.Dir))
	if !c.Verify {
		return nil
	}
	return (&VerifyCmd{}).Run(g, env)
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(env *Env) error {
	fmt.Fprintf(env.Stdout, "litbook version %s\n", version)
	info := sqlite.GetInfo(nil)
	build := "pure Go"
	if sqlite.IsCGO() {
		build = "cgo"
	}
	fmt.Fprintf(env.Stdout, "sqlite driver %s (%s, %s)\n", info.DriverName, info.Package, build)
	return nil
}

func configureLogging(g *Globals) error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(resolveFormat(g.LogFormat, isatty.IsTerminal(os.Stderr.Fd())))
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// resolveFormat picks text logs for a terminal and JSON otherwise when
// the format is "auto".
func resolveFormat(format string, tty bool) string {
	if format != "auto" {
		return format
	}
	if tty {
		return "text"
	}
	return "json"
}

func main() {
	env := &Env{Stdin: os.Stdin, Stdout: os.Stdout}
	ctx := kong.Parse(&CLI,
		kong.Name("litbook"),
		kong.Description("litbook - literary reference resolution and verse store"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&CLI.Globals, env),
	)
	ctx.FatalIfErrorf(configureLogging(&CLI.Globals))
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
