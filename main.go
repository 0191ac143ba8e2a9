package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Drolfothesgnir/pagec/api"
	"github.com/Drolfothesgnir/pagec/artifact"
	"github.com/Drolfothesgnir/pagec/compiler"
	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/parser"
	"github.com/Drolfothesgnir/pagec/taglib"
	"github.com/Drolfothesgnir/pagec/util"
)

var interruptSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGINT,
}

const usage = `usage:
  pagec compile [-root dir] [-out dir] [page ...]
  pagec serve`

func main() {
	// reading .env config file
	config, err := util.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot read config file")
	}

	if config.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "compile":
		if err := runCompile(config, os.Args[2:]); err != nil {
			log.Error().Err(err).Msg("compilation failed")
			os.Exit(1)
		}
	case "serve":
		runServe(config)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

// newRegistry resolves tag directories and descriptors under the page root and registers the
// descriptors found in the tag library directory up front.
func newRegistry(config util.Config, sources fs.FS) (*taglib.Registry, error) {
	registry := taglib.NewRegistry(sources)

	err := registry.LoadDir(sources, config.TaglibDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return registry, nil
}

func runCompile(config util.Config, args []string) error {
	flags := flag.NewFlagSet("compile", flag.ContinueOnError)
	root := flags.String("root", config.PageRoot, "page root directory")
	out := flags.String("out", config.OutputDir, "output directory")
	if err := flags.Parse(args); err != nil {
		return err
	}

	sources := os.DirFS(*root)

	registry, err := newRegistry(config, sources)
	if err != nil {
		return err
	}

	c, err := compiler.New(sources, registry, config.CompilerOptions())
	if err != nil {
		return err
	}
	c.WithLogger(log.Logger)

	pages := flags.Args()
	if len(pages) == 0 {
		if pages, err = findPages(sources); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	written := map[string]bool{}
	failed := 0

	for _, p := range pages {
		res, err := c.Compile(p)
		if err != nil {
			failed++
			reportErrors(p, err)
			continue
		}

		for _, u := range append([]*compiler.Unit{res.Unit}, res.Aux...) {
			if written[u.Path] {
				continue
			}
			if err := writeUnit(*out, u); err != nil {
				return err
			}
			written[u.Path] = true
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed to compile", failed, len(pages))
	}

	log.Info().Int("pages", len(pages)).Int("files", len(written)).Str("out", *out).Msg("compiled")
	return nil
}

// findPages lists the pages under the page root. Tag files and the private WEB-INF directory
// are compiled only when a page uses them.
func findPages(sources fs.FS) ([]string, error) {
	var pages []string
	err := fs.WalkDir(sources, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == "WEB-INF" {
				return fs.SkipDir
			}
			return nil
		}

		switch path.Ext(p) {
		case ".jsp", ".jspx":
			pages = append(pages, "/"+p)
		}
		return nil
	})
	return pages, err
}

// writeUnit writes the generated source and its line map, mirroring the page's directory
// under dir.
func writeUnit(dir string, u *compiler.Unit) error {
	dir = filepath.Join(dir, filepath.FromSlash(path.Dir(u.Path)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	target := filepath.Join(dir, u.FileName)

	if err := os.WriteFile(target, []byte(u.Source), 0o644); err != nil {
		return err
	}

	if err := os.WriteFile(target+".smap", []byte(u.SMAP), 0o644); err != nil {
		return err
	}

	log.Debug().Str("unit", u.Path).Str("file", target).Msg("unit written")
	return nil
}

func reportErrors(page string, err error) {
	for _, e := range diag.SerializeAll(err) {
		event := log.Error().Str("page", page).Str("key", e.Key)
		if e.File != "" {
			event = event.Str("at", fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column))
		}
		if len(e.IncludedFrom) > 0 {
			event = event.Str("included_from", strings.Join(e.IncludedFrom, " < "))
		}
		event.Msg(e.Message)
	}
}

func runServe(config util.Config) {
	// Configure the validator to use json tags for field names in errors
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}

	// catching interrupt signals for graceful shutdown
	// stop() or a signal catch makes context Done
	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals...)
	defer stop()

	// waitgroup which manages goroutines for starting and stopping HTTP server
	waitGroup, ctx := errgroup.WithContext(ctx)

	RunGinServer(ctx, waitGroup, config)

	err := waitGroup.Wait()
	if err != nil {
		log.Fatal().Err(err).Msg("error from wait group")
	}
}

func RunGinServer(
	ctx context.Context,
	waitGroup *errgroup.Group,
	config util.Config,
) {
	sources := os.DirFS(config.PageRoot)

	registry, err := newRegistry(config, sources)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load tag libraries")
	}

	store := artifact.NewStore(&config)

	service, err := api.NewService(config, store, registry, sources)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create HTTP service")
	}

	waitGroup.Go(func() error {
		log.Info().
			Str("syntaxes", strings.Join([]string{parser.SyntaxNative.String(), parser.SyntaxXML.String()}, ",")).
			Msgf("start HTTP server at %s", config.HTTPServerAddress)

		err := service.Start()

		if err != nil {
			//http.ErrServerClosed is returned once the server begins shutting down
			// which is normal
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			log.Error().Err(err).Msg("cannot start HTTP server")
		}

		return err
	})

	waitGroup.Go(func() error {
		<-ctx.Done()

		log.Info().Msg("HTTP server: graceful shutdown")

		// give the server 5 secs to finish all his processes
		toCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := service.Shutdown(toCtx)

		if err != nil {
			log.Error().Err(err).Msg("cannot shutdown HTTP server gracefully")
		}

		// closing the redis connection pool
		if cerr := store.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("cannot close artifact store")
		}

		log.Info().Msg("HTTP server is stopped")

		return err
	})
}
