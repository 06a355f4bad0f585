// Copyright 2025 The permsearch Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the permsearch CLI and IPC server.

permsearch reads one or more text files, treats every line as a key and lets
you type a query one keystroke at a time. After each keystroke the lines that
start with what you typed are shown, tolerating likely typos: keys next to
the intended one on a QWERTY keyboard, and accented or script variants of a
letter (e, é, ё ...). A keystroke that matches nothing is kept in the input but
does not narrow the results.

# Usage

Search the lines of a file interactively:

	permsearch words.txt

Several files and directories of .txt files can be given; line indices run
across them in order. When stdin is not a terminal, or with -c, every input
line is run as its own query:

	printf 'helo\nwrld\n' | permsearch words.txt

Start the msgpack IPC server instead:

	permsearch -serve words.txt

# Keys

In the interactive mode:

	any printable key   append to the query
	Backspace           remove the last character
	Ctrl-U              clear the query
	Esc, Ctrl-C         quit

# Configuration

Settings live in ~/.config/permsearch/config.toml, created with defaults on
first run:

	[search]
	keyboard = true
	variants = true
	limit = 10

	[cli]
	prompt = "> "
	color = true

	[server]
	max_sessions = 64
	max_limit = 64
	max_input = 256
	watch = true

A different file, TOML or YAML, can be passed with -config. In server mode the
file is watched and changes apply without a restart.

# Command Line Flags

	-config string
	    Path to a config file
	-d  Enable debug mode with detailed logging
	-c  Read one query per line instead of raw keystrokes
	-serve
	    Run the msgpack IPC server on stdin/stdout
	-limit int
	    Number of candidates to show (default from config)
	-no-keyboard
	    Do not tolerate adjacent-key typos
	-no-variants
	    Do not tolerate accent and script variants
	-dump
	    Print the prefix tree and exit
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/permsearch/internal/cli"
	"github.com/bastiangx/permsearch/internal/utils"
	"github.com/bastiangx/permsearch/pkg/config"
	"github.com/bastiangx/permsearch/pkg/dictionary"
	"github.com/bastiangx/permsearch/pkg/lookalike"
	"github.com/bastiangx/permsearch/pkg/search"
	"github.com/bastiangx/permsearch/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
)

const (
	Version = "0.3.0"
	AppName = "permsearch"
	gh      = "https://github.com/bastiangx/permsearch"
)

// sigHandler exits normally on SIGINT and SIGTERM.
// In raw mode Ctrl-C arrives as a keystroke instead.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// overrides are the flags that take precedence over the config file,
// including a reloaded one.
type overrides struct {
	limit      int
	noKeyboard bool
	noVariants bool
}

func (o overrides) apply(cfg *config.Config) *config.Config {
	if o.limit > 0 {
		cfg.Search.Limit = o.limit
	}
	if o.noKeyboard {
		cfg.Search.Keyboard = false
	}
	if o.noVariants {
		cfg.Search.Variants = false
	}
	return cfg
}

// main only manages the flow between the packages.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "", "Path to a TOML or YAML config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	lineMode := flag.Bool("c", false, "Read one query per line instead of raw keystrokes")
	serveMode := flag.Bool("serve", false, "Run the msgpack IPC server on stdin/stdout")
	limit := flag.Int("limit", 0, "Number of candidates to show (default from config)")
	noKeyboard := flag.Bool("no-keyboard", false, "Do not tolerate adjacent-key typos")
	noVariants := flag.Bool("no-variants", false, "Do not tolerate accent and script variants")
	dump := flag.Bool("dump", false, "Print the prefix tree and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file...\n", AppName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatal("Please provide the files to read lines from")
	}

	corpus, err := dictionary.LoadFiles(flag.Args()...)
	if err != nil {
		if corpus.Len() == 0 {
			log.Fatalf("Failed to load lines: %v", err)
		}
		log.Warnf("Some inputs were skipped: %v", err)
	}
	log.Debugf("Loaded %s lines (%s duplicates)",
		utils.FormatWithCommas(corpus.Len()), utils.FormatWithCommas(corpus.Duplicates()))

	if *dump {
		if err := corpus.Tree().Fprint(os.Stdout); err != nil {
			log.Fatalf("Failed to print tree: %v", err)
		}
		return
	}

	flags := overrides{limit: *limit, noKeyboard: *noKeyboard, noVariants: *noVariants}
	appConfig, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flags.apply(appConfig)
	log.Debugf("Using config: %s", config.GetActiveConfigPath(configPath))

	if *serveMode {
		runServer(corpus, appConfig, configPath, flags)
		return
	}

	log.SetReportTimestamp(false)
	searcher := search.New(corpus.Tree(),
		search.WithLookalikes(lookalike.Policy(appConfig.Search.Keyboard, appConfig.Search.Variants)))

	if *lineMode || !term.IsTerminal(os.Stdin.Fd()) {
		inputHandler := cli.NewInputHandler(corpus, searcher, appConfig)
		if err := inputHandler.Start(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	if err := cli.NewTerminal(corpus, searcher, appConfig).Start(); err != nil {
		log.Fatalf("Terminal error: %v", err)
	}
}

func runServer(corpus *dictionary.Corpus, appConfig *config.Config, configPath string, flags overrides) {
	log.Debug("spawning IPC")
	srv := server.NewServer(corpus, appConfig)

	if appConfig.Server.Watch && configPath != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		err := config.Watch(ctx, configPath, func(c *config.Config) {
			srv.UpdateConfig(flags.apply(c))
		})
		if err != nil {
			log.Warnf("Config changes will not be picked up: %v", err)
		}
	}

	showStartupInfo(corpus, configPath)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ permsearch ] Finds lines while you type, typos included")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(corpus *dictionary.Corpus, configPath string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("============")
	println(" permsearch ")
	println("============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("lines: %s from %d sources", utils.FormatWithCommas(corpus.Len()), len(corpus.Sources()))
	log.Infof("config: ( %s )", config.GetActiveConfigPath(configPath))
	log.Info("status: ready")
	println("============")

	log.SetLevel(currentLevel)
}
