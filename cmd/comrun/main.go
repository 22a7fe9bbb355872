package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/com-runtime/cmd/internal/linked"
	"github.com/wippyai/com-runtime/com"
	"github.com/wippyai/com-runtime/typesystem"
)

func main() {
	var (
		libName     = flag.String("lib", "calculator", "Library to load")
		className   = flag.String("class", "", "Class to instantiate (default: first creatable class)")
		method      = flag.String("call", "", "Method to call, as Interface.Method")
		args        = flag.String("args", "", "Arguments (comma-separated)")
		tsName      = flag.String("ts", "", "Type system to call through: automation or raw (default: library preference)")
		list        = flag.Bool("list", false, "List classes and methods and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *method == "" && !*list && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: comrun [-lib name] [-class name] -call Interface.Method [-args a,b]")
		fmt.Fprintln(os.Stderr, "       comrun [-lib name] -list")
		fmt.Fprintln(os.Stderr, "       comrun [-lib name] -i  (interactive mode)")
		fmt.Fprintf(os.Stderr, "Libraries: %s\n", strings.Join(linked.Names(), ", "))
		os.Exit(1)
	}

	lib, err := linked.Load(*libName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ts, err := pickTypeSystem(lib, *tsName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(lib, *className, ts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(lib, *className, *method, *args, ts, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func pickTypeSystem(lib *com.Library, name string) (typesystem.TypeSystem, error) {
	if name != "" {
		return typesystem.Parse(name)
	}
	if lib.Options().PreferRaw {
		return typesystem.Raw, nil
	}
	return typesystem.Automation, nil
}

// defaultClass picks the first class a factory can create.
func defaultClass(lib *com.Library) (*com.Class, error) {
	for _, c := range lib.Classes() {
		if _, ok := c.CLSID(); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("library %s has no creatable class", lib.Name())
}

func resolveClass(lib *com.Library, name string) (*com.Class, error) {
	if name == "" {
		return defaultClass(lib)
	}
	c, ok := lib.Class(name)
	if !ok {
		return nil, fmt.Errorf("library %s has no class %s", lib.Name(), name)
	}
	return c, nil
}

func run(lib *com.Library, className, method, argStr string, ts typesystem.TypeSystem, listOnly bool) error {
	fmt.Printf("Library: %s\n", lib.Name())
	fmt.Printf("Classes: %d\n", len(lib.Classes()))
	fmt.Printf("Interfaces: %d\n", len(lib.Interfaces()))
	fmt.Printf("Type system: %s\n", ts)

	if listOnly {
		for _, c := range lib.Classes() {
			clsid, _ := c.CLSID()
			fmt.Printf("\nclass %s %s\n", c.Name(), clsid)
			for _, mi := range methods(lib, c) {
				fmt.Printf("  %s\n", signature(mi, ts))
			}
		}
		return nil
	}

	c, err := resolveClass(lib, className)
	if err != nil {
		return err
	}
	var target *methodInfo
	for _, mi := range methods(lib, c) {
		if mi.name() == method || mi.method.Name == method {
			target = &mi
			break
		}
	}
	if target == nil {
		return fmt.Errorf("class %s has no method %s", c.Name(), method)
	}

	s, err := newSession(lib, c.Name(), ts)
	if err != nil {
		return err
	}
	defer s.Close()

	var args []string
	if argStr != "" {
		args = strings.Split(argStr, ",")
		for i := range args {
			args[i] = strings.TrimSpace(args[i])
		}
	}

	fmt.Printf("\nCalling %s(%s)...\n", target.name(), strings.Join(args, ", "))
	result, err := s.call(*target, args)
	if err != nil {
		return fmt.Errorf("call %s: %w", target.name(), err)
	}
	fmt.Printf("Result: %s\n", result)
	return nil
}
