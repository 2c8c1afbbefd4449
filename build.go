//go:build ignore

// Cross-compiles orbitrat for the boards it usually runs on: go run build.go -platforms linux-arm-v7
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var availableTargets = []target{
	{goos: "linux", goarch: "arm", goarm: "6"}, // Pi Zero
	{goos: "linux", goarch: "arm", goarm: "7"},
	{goos: "linux", goarch: "arm64"},
	{goos: "linux", goarch: "amd64"},
}

type target struct {
	goos   string
	goarch string
	goarm  string
}

func (t target) String() string {
	if t.goarm != "" {
		return fmt.Sprintf("%s-%s-v%s", t.goos, t.goarch, t.goarm)
	}
	return fmt.Sprintf("%s-%s", t.goos, t.goarch)
}

type buildError struct {
	target         target
	stdout, stderr string
	err            error
}

func (e *buildError) Error() string {
	return fmt.Sprintf("building %s failed: %v", e.target, e.err)
}

func (e *buildError) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n>>> Failed build: project: %s, base: %s, target: %s\n", project, basename, e.target)
	if e.stdout != "" {
		fmt.Fprintf(&b, "======== STDOUT ========\n%s========================\n", e.stdout)
	}
	if e.stderr != "" {
		fmt.Fprintf(&b, "======== STDERR ========\n%s========================\n", e.stderr)
	}
	return b.String()
}

func build(t target) error {
	binaryPath := fmt.Sprintf("./builds/%s-%s", basename, t)

	env := append(os.Environ(),
		fmt.Sprintf("GOOS=%s", t.goos),
		fmt.Sprintf("GOARCH=%s", t.goarch),
	)
	if t.goarm != "" {
		env = append(env, fmt.Sprintf("GOARM=%s", t.goarm))
	}
	if cgo {
		env = append(env, "CGO_ENABLED=1")
	} else {
		env = append(env, "CGO_ENABLED=0")
	}

	params := []string{"build", "-o", binaryPath}
	if race {
		params = append(params, "-race")
	}
	params = append(params, project)

	cmd := exec.Command("go", params...)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return &buildError{target: t, stdout: stdout.String(), stderr: stderr.String(), err: err}
	}
	return nil
}

func selectTargets(selection string) ([]target, error) {
	if selection == "all" {
		return availableTargets, nil
	}

	var selected []target
	for _, rt := range strings.Split(selection, ",") {
		var found bool
		for _, t := range availableTargets {
			if t.String() == rt {
				selected = append(selected, t)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("target not found: %s", rt)
		}
	}
	return selected, nil
}

var selection, project, basename string
var cgo, race bool

func main() {
	var names []string
	for _, t := range availableTargets {
		names = append(names, t.String())
	}
	pflag.StringVar(&selection, "platforms", "all", fmt.Sprintf(
		"comma-separated target platform list\navailable: %s", strings.Join(names, ",")),
	)
	pflag.StringVar(&project, "project", "./cmd/orbitrat/", "project directory")
	pflag.StringVar(&basename, "base", "orbitrat", "base filename for output binaries")
	pflag.BoolVar(&cgo, "cgo", false, "cgo")
	pflag.BoolVar(&race, "race", false, "include race detector")
	pflag.Parse()

	log.SetFlags(log.Ltime)

	targets, err := selectTargets(selection)
	if err != nil {
		log.Printf("%s", err)
		os.Exit(1)
	}
	log.Printf("engaging parallel building for %d targets", len(targets))

	var mu sync.Mutex
	var failed []*buildError

	var g errgroup.Group
	for _, t := range targets {
		t := t
		g.Go(func() error {
			log.Printf("building target %s          %s", project, t)
			err := build(t)
			if err != nil {
				log.Printf("building target %s failed:  %s", project, t)
				mu.Lock()
				failed = append(failed, err.(*buildError))
				mu.Unlock()
				return err
			}
			log.Printf("building target %s success: %s", project, t)
			return nil
		})
	}
	err = g.Wait()

	for _, f := range failed {
		fmt.Print(f.Report())
	}
	if err != nil {
		os.Exit(1)
	}
}
