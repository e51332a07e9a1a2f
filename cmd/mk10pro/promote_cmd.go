package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/mk10pro/truthcore/pkg/mtb"
	"github.com/mk10pro/truthcore/pkg/policy"
	"github.com/mk10pro/truthcore/pkg/statemachine"
)

// runPromoteCmd implements `mk10pro promote`: attempts a state transition
// against a bundle's own build_evidence, gated purely by the rule set — no
// flag here can relax a failing check. When --to archived, --archive-reason
// records an archive_declaration event before the transition is checked, so
// the archive_declaration_required predicate can see it; omitting the flag
// simply leaves that predicate unsatisfied. The decision, accepted or
// rejected, is itself recorded as a state_transition evidence event before
// the bundle is resealed and written to --out; on success an approval event
// is also appended.
func runPromoteCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("promote", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		bundlePath string
		rulesPath  string
		from       string
		to         string
		approver   string
		out        string
		archiveWhy string
	)
	cmd.StringVar(&bundlePath, "bundle", "", "path to an unsealed or sealed bundle JSON (REQUIRED)")
	cmd.StringVar(&rulesPath, "rules", "", "path to a rule file YAML (REQUIRED)")
	cmd.StringVar(&from, "from", "", "current state: draft|candidate|release|archived (REQUIRED)")
	cmd.StringVar(&to, "to", "", "desired state (REQUIRED)")
	cmd.StringVar(&approver, "approver", "cli", "approver id recorded on the approval event")
	cmd.StringVar(&out, "out", "", "output path for the resealed bundle JSON (REQUIRED)")
	cmd.StringVar(&archiveWhy, "archive-reason", "", "reason recorded on the archive_declaration event (required when --to archived)")

	if err := cmd.Parse(args); err != nil {
		return exitUserError
	}
	if bundlePath == "" || rulesPath == "" || from == "" || to == "" || out == "" {
		fmt.Fprintln(stderr, "error: --bundle, --rules, --from, --to, and --out are required")
		return exitUserError
	}
	// State names are accepted in any case; policy.State values are upper case.
	from, to = strings.ToUpper(from), strings.ToUpper(to)

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

	// An archive declaration must be visible to CheckTransition's
	// archive_declaration_required predicate, which only ever sees the
	// evidence log — so unlike the state_transition event below, this one
	// is recorded before the transition is checked, not after.
	if policy.State(to) == policy.StateArchived && archiveWhy != "" {
		declareRecorder := evidence.Reopen(bundle.BuildEvidence)
		declareTS := mtb.DeriveTimestamp(bundle.BuildEvidence)
		if _, derr := declareRecorder.Record(evidence.KindArchiveDeclaration, map[string]interface{}{
			"declared": true,
			"reason":   archiveWhy,
		}); derr != nil {
			fmt.Fprintf(stderr, "error: record archive declaration: %v\n", derr)
			return exitInternalErr
		}
		bundle.BuildEvidence = declareRecorder.Freeze()
		bundle.ArchiveDeclaration = &mtb.ArchiveDeclaration{Declared: true, Timestamp: declareTS, Reason: archiveWhy}
	}

	allowed, _, checks, err := statemachine.Transition(rules, bundle.BuildEvidence, policy.State(from), policy.State(to))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitVerifyFail
	}
	bundle.PolicyEvidence = checks

	// A rejected or accepted promotion is itself evidence, not just a
	// return value: append a state_transition event to the run's own
	// evidence trail before resealing, whichever way it went.
	recorder := evidence.Reopen(bundle.BuildEvidence)
	if _, rerr := recorder.Record(evidence.KindStateTransition, statemachine.Payload(policy.State(from), policy.State(to), checks)); rerr != nil {
		fmt.Fprintf(stderr, "error: record state transition: %v\n", rerr)
		return exitInternalErr
	}
	bundle.BuildEvidence = recorder.Freeze()

	if !allowed {
		fmt.Fprintf(stdout, "promotion %s -> %s rejected\n", from, to)
		for _, c := range checks {
			if !c.Passed {
				fmt.Fprintf(stdout, "  failed: %s\n", c.RuleID)
			}
		}
		if werr := sealAndWrite(&bundle, out); werr != nil {
			fmt.Fprintf(stderr, "error: %v\n", werr)
			return exitInternalErr
		}
		return exitVerifyFail
	}

	bundle.ApprovalEvents = append(bundle.ApprovalEvents, mtb.ApprovalEvent{
		ApproverID: approver,
		Decision:   fmt.Sprintf("%s->%s", from, to),
		Timestamp:  mtb.DeriveTimestamp(bundle.BuildEvidence),
	})

	if err := sealAndWrite(&bundle, out); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInternalErr
	}

	fmt.Fprintf(stdout, "promotion %s -> %s accepted, bundle written to %s\n", from, to, out)
	return exitSuccess
}

// sealAndWrite reseals bundle and writes it to out as indented JSON.
func sealAndWrite(bundle *mtb.Bundle, out string) error {
	sealed, err := mtb.Seal(bundle)
	if err != nil {
		return fmt.Errorf("seal bundle: %w", err)
	}
	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}
