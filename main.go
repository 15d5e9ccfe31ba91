// lox compiles Lox source into bytecode and runs it in a stack-based
// virtual machine.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dr8co/lox/compiler"
	"github.com/dr8co/lox/repl"
	"github.com/dr8co/lox/vm"
)

const version = "0.1.0"

var log = logrus.New()

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `Lox Compiler v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    lox compiles Lox source code into bytecode and runs it in a virtual machine.
    Without any flags, it starts an interactive REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>       Execute a Lox script file
    -e, --eval <code>       Run Lox source given on the command line
    -d, --debug             Enable debug mode (disassembly + verbose logging)
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Start interactive REPL
    %s

    # Execute a script file
    %s -f script.lox
    %s --file script.lox

    # Run source given on the command line
    %s -e "print 1 + 2;"

    # Execute with debug mode
    %s -f script.lox -d

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Execute a Lox script file")
	evalFlag := flag.String("eval", "", "Run Lox source given on the command line")
	debugFlag := flag.Bool("debug", false, "Enable debug mode with more verbose output")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Execute a Lox script file")
	flag.StringVar(evalFlag, "e", "", "Run Lox source given on the command line")
	flag.BoolVar(debugFlag, "d", false, "Enable debug mode with more verbose output")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *debugFlag {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	if *versionFlag {
		fmt.Printf("lox v%s\n", version)
		return
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, *debugFlag)
		return
	}

	if *evalFlag != "" {
		run(*evalFlag, *debugFlag)
		return
	}

	if flag.NArg() > 0 {
		executeFile(flag.Arg(0), *debugFlag)
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	fmt.Println("Hello", username+",", "welcome to the lox compiler!")
	fmt.Println("Feel free to type in Lox code. (Ctrl+D or Ctrl+C to exit)")

	repl.Start(os.Stdin, os.Stdout, repl.Options{Debug: *debugFlag})
}

// executeFile reads and executes a Lox script file.
func executeFile(filename string, debug bool) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		log.WithError(err).Fatal("could not resolve script path")
	}
	log.WithField("path", absolute).Debug("executing file")

	//nolint:gosec // path comes from a trusted CLI flag, not remote input
	content, err := os.ReadFile(absolute)
	if err != nil {
		log.WithError(err).Fatal("could not read script")
	}

	run(string(content), debug)
}

// run compiles and executes source, printing any compile or runtime
// error to stderr and exiting non-zero on failure.
func run(source string, debug bool) {
	fn, err := compiler.Compile(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compilation error:\n%s\n", err)
		os.Exit(1)
	}

	machine := vm.New(debug)
	if _, err := machine.Run(fn); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
