package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mk10pro/truthcore/pkg/mtb"
	"github.com/mk10pro/truthcore/pkg/policy"
)

// runVerifyCmd implements `mk10pro verify`: hostilely verifies a sealed
// bundle against a public rule set, using only the bundle bytes and the
// rule file — no engine, no network.
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		bundlePath string
		rulesPath  string
		jsonOutput bool
	)
	cmd.StringVar(&bundlePath, "bundle", "", "path to a sealed bundle JSON (REQUIRED)")
	cmd.StringVar(&rulesPath, "rules", "", "path to a rule file YAML (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "emit the verification result as JSON")

	if err := cmd.Parse(args); err != nil {
		return exitUserError
	}
	if bundlePath == "" || rulesPath == "" {
		fmt.Fprintln(stderr, "error: --bundle and --rules are required")
		return exitUserError
	}

	bundleBytes, err := os.ReadFile(bundlePath)
	if err != nil {
		fmt.Fprintf(stderr, "error: read %s: %v\n", bundlePath, err)
		return exitInternalErr
	}
	var bundle mtb.Bundle
	if err := json.Unmarshal(bundleBytes, &bundle); err != nil {
		fmt.Fprintf(stderr, "error: parse bundle: %v\n", err)
		return exitUserError
	}

	rulesBytes, err := os.ReadFile(rulesPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: read %s: %v\n", rulesPath, err)
		return exitInternalErr
	}
	rules, err := policy.LoadRules(rulesBytes)
	if err != nil {
		fmt.Fprintf(stderr, "error: parse rules: %v\n", err)
		return exitUserError
	}

	result := mtb.Verify(&bundle, rules)

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(data))
	} else if result.Valid {
		fmt.Fprintf(stdout, "bundle verified: %s\n", bundlePath)
		for _, w := range result.Warnings {
			fmt.Fprintf(stdout, "  warning: %s\n", w)
		}
	} else {
		fmt.Fprintf(stdout, "bundle failed verification: %s\n", bundlePath)
		for _, e := range result.Errors {
			fmt.Fprintf(stdout, "  error: %s\n", e)
		}
	}

	if !result.Valid {
		return exitVerifyFail
	}
	return exitSuccess
}
