// Command asconfig-merge prints an asconfig.json with its "extends" chain
// merged in.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/CWBudde/go-as3-lsp/internal/config"
)

var (
	output  string
	verbose bool
)

func init() {
	flag.StringVar(&output, "o", "", "Write the merged file here instead of stdout")
	flag.BoolVar(&verbose, "v", false, "Log each merged file")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: asconfig-merge [options] [path]\n\n")
	fmt.Fprintf(os.Stderr, "Resolves the extends chain of an asconfig.json (default: ./%s)\n\n", config.FileName)
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	verbosity := 0
	if verbose {
		verbosity = 4
	}

	commonlog.Configure(verbosity, nil)

	path := config.FileName
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, config.FileName)
	}

	merged, err := config.Resolve(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "asconfig-merge: %v\n", err)
		os.Exit(1)
	}

	formatted := config.Format(merged)

	if output == "" {
		os.Stdout.Write(formatted)
		return
	}

	if err := os.WriteFile(output, formatted, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "asconfig-merge: %v\n", err)
		os.Exit(1)
	}
}
